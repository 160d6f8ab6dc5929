package uow

import (
	"context"

	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/loan"
)

// Repos are bound to the surrounding transaction.
type Repos struct {
	Loans     loan.Repository
	Hospitals hospital.Repository
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
}
