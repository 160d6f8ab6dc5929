package hospital

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "credhealth/internal/domain/hospital"
	"credhealth/internal/domain/user"
	"credhealth/pkg/id"

	"go.uber.org/zap"
)

type AddHospitalInput struct {
	Name          string
	Address       string
	WalletAddress string
}

type Usecase struct {
	repo   domain.Repository
	logger *zap.Logger
}

func NewUsecase(repo domain.Repository, logger *zap.Logger) *Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Usecase{repo: repo, logger: logger}
}

// Add registers a hospital with the caller as its first admin.
func (u *Usecase) Add(ctx context.Context, c user.Caller, in AddHospitalInput) (*domain.Hospital, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	if c.Role != user.RoleHospitalAdmin {
		return nil, user.ErrUnauthorized
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.WalletAddress = strings.TrimSpace(in.WalletAddress)
	if in.Name == "" || in.Address == "" || in.WalletAddress == "" {
		return nil, fmt.Errorf("name, address and wallet_address are required: %w", domain.ErrInvalidInput)
	}

	if _, err := u.repo.GetByWallet(ctx, in.WalletAddress); err == nil {
		return nil, domain.ErrWalletTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hid := id.New()
	h := &domain.Hospital{
		HospitalID:    hid,
		Name:          in.Name,
		Address:       in.Address,
		WalletAddress: in.WalletAddress,
		Admins:        []domain.Admin{{HospitalID: hid, UserID: c.UserID}},
	}
	if err := u.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	u.logger.Info("hospital added",
		zap.String("hospital_id", h.HospitalID),
		zap.String("admin_id", c.UserID),
	)
	return h, nil
}

func (u *Usecase) Get(ctx context.Context, c user.Caller, hospitalID string) (*domain.Hospital, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	return u.repo.GetByHospitalID(ctx, hospitalID)
}

func (u *Usecase) List(ctx context.Context, c user.Caller) ([]domain.Hospital, error) {
	if !c.Authenticated() {
		return nil, user.ErrUnauthenticated
	}
	return u.repo.List(ctx)
}
