package hospitalmock

import (
	"context"

	domain "credhealth/internal/domain/hospital"

	"github.com/shopspring/decimal"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn             func(ctx context.Context, h *domain.Hospital) error
	GetByHospitalIDFn    func(ctx context.Context, hospitalID string) (*domain.Hospital, error)
	GetByWalletFn        func(ctx context.Context, wallet string) (*domain.Hospital, error)
	ListFn               func(ctx context.Context) ([]domain.Hospital, error)
	RecordDisbursementFn func(ctx context.Context, hospitalID string, amount decimal.Decimal) error
}

func (m *Repo) Create(ctx context.Context, h *domain.Hospital) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, h)
	}
	return nil
}

func (m *Repo) GetByHospitalID(ctx context.Context, hospitalID string) (*domain.Hospital, error) {
	if m.GetByHospitalIDFn != nil {
		return m.GetByHospitalIDFn(ctx, hospitalID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) GetByWallet(ctx context.Context, wallet string) (*domain.Hospital, error) {
	if m.GetByWalletFn != nil {
		return m.GetByWalletFn(ctx, wallet)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) List(ctx context.Context) ([]domain.Hospital, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	return nil, nil
}

func (m *Repo) RecordDisbursement(ctx context.Context, hospitalID string, amount decimal.Decimal) error {
	if m.RecordDisbursementFn != nil {
		return m.RecordDisbursementFn(ctx, hospitalID, amount)
	}
	return nil
}
