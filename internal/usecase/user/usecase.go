package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"credhealth/internal/auth"
	domain "credhealth/internal/domain/user"
	"credhealth/pkg/id"

	"go.uber.org/zap"
)

const minPasswordLen = 8

type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	Role          domain.Role
	WalletAddress *string
}

// UpdateInput carries optional profile changes; nil fields are left alone.
type UpdateInput struct {
	Name          *string
	WalletAddress *string
	CreditScore   *float64
}

type Usecase struct {
	repo   domain.Repository
	logger *zap.Logger
	hash   func(string) (string, error)
}

func NewUsecase(repo domain.Repository, logger *zap.Logger) *Usecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Usecase{repo: repo, logger: logger, hash: auth.HashPassword}
}

func (u *Usecase) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("email is invalid: %w", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLen, domain.ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = domain.RolePatient
	}
	if !role.Valid() {
		return nil, fmt.Errorf("role %q is not allowed: %w", role, domain.ErrInvalidInput)
	}
	wallet, err := normalizeWallet(in.WalletAddress)
	if err != nil {
		return nil, err
	}

	if _, err := u.repo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := u.hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	usr := &domain.User{
		UserID:        id.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		WalletAddress: wallet,
		Role:          role,
	}
	if err := u.repo.Create(ctx, usr); err != nil {
		return nil, err
	}
	u.logger.Info("user registered", zap.String("user_id", usr.UserID), zap.String("role", string(role)))
	return usr, nil
}

func (u *Usecase) Me(ctx context.Context, c domain.Caller) (*domain.User, error) {
	if !c.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return u.repo.GetByUserID(ctx, c.UserID)
}

func (u *Usecase) Get(ctx context.Context, c domain.Caller, userID string) (*domain.User, error) {
	if !c.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return u.repo.GetByUserID(ctx, userID)
}

// Update changes the caller's own profile.
func (u *Usecase) Update(ctx context.Context, c domain.Caller, in UpdateInput) (*domain.User, error) {
	if !c.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	usr, err := u.repo.GetByUserID(ctx, c.UserID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("name must not be empty: %w", domain.ErrInvalidInput)
		}
		usr.Name = name
	}
	if in.WalletAddress != nil {
		wallet, err := normalizeWallet(in.WalletAddress)
		if err != nil {
			return nil, err
		}
		usr.WalletAddress = wallet
	}
	if in.CreditScore != nil {
		if *in.CreditScore < 0 {
			return nil, fmt.Errorf("credit_score must not be negative: %w", domain.ErrInvalidInput)
		}
		score := *in.CreditScore
		usr.CreditScore = &score
	}

	if err := u.repo.Save(ctx, usr); err != nil {
		return nil, err
	}
	return usr, nil
}

// normalizeWallet trims w; an empty string clears the wallet.
func normalizeWallet(w *string) (*string, error) {
	if w == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*w)
	if v == "" {
		return nil, nil
	}
	if len(v) > 64 {
		return nil, fmt.Errorf("wallet_address is too long: %w", domain.ErrInvalidInput)
	}
	return &v, nil
}
