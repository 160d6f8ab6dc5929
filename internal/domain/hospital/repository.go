package hospital

import (
	"context"

	"github.com/shopspring/decimal"
)

type Repository interface {
	// Create inserts the hospital together with its initial admins.
	Create(ctx context.Context, h *Hospital) error
	// GetByHospitalID returns the hospital with Admins preloaded.
	GetByHospitalID(ctx context.Context, hospitalID string) (*Hospital, error)
	GetByWallet(ctx context.Context, wallet string) (*Hospital, error)
	List(ctx context.Context) ([]Hospital, error)
	// RecordDisbursement bumps the aggregate counters by one loan of the given amount.
	RecordDisbursement(ctx context.Context, hospitalID string, amount decimal.Decimal) error
}
