package loanmock

import (
	"context"
	"time"

	domain "credhealth/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset lookups return domain.ErrNotFound; unset writes succeed.
type Repo struct {
	CreateFn         func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn    func(ctx context.Context, loanID string) (*domain.Loan, error)
	ListByPatientFn  func(ctx context.Context, patientID string) ([]domain.Loan, error)
	ListByHospitalFn func(ctx context.Context, hospitalID string) ([]domain.Loan, error)
	ListOverdueFn    func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Loan, error)
	UpdateStateIfFn  func(ctx context.Context, l *domain.Loan, from domain.State) error
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, domain.ErrNotFound
}

func (m *Repo) ListByPatient(ctx context.Context, patientID string) ([]domain.Loan, error) {
	if m.ListByPatientFn != nil {
		return m.ListByPatientFn(ctx, patientID)
	}
	return nil, nil
}

func (m *Repo) ListByHospital(ctx context.Context, hospitalID string) ([]domain.Loan, error) {
	if m.ListByHospitalFn != nil {
		return m.ListByHospitalFn(ctx, hospitalID)
	}
	return nil, nil
}

func (m *Repo) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Loan, error) {
	if m.ListOverdueFn != nil {
		return m.ListOverdueFn(ctx, cutoff, limit)
	}
	return nil, nil
}

func (m *Repo) UpdateStateIf(ctx context.Context, l *domain.Loan, from domain.State) error {
	if m.UpdateStateIfFn != nil {
		return m.UpdateStateIfFn(ctx, l, from)
	}
	return nil
}
