package loan

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	ListByPatient(ctx context.Context, patientID string) ([]Loan, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]Loan, error)
	// ListOverdue returns DISBURSED loans disbursed before cutoff, oldest first.
	ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]Loan, error)
	// UpdateStateIf persists l's lifecycle fields only if the stored status still equals
	// from. It returns ErrStaleState when no row matched.
	UpdateStateIf(ctx context.Context, l *Loan, from State) error
}
