package loan

import (
	"github.com/shopspring/decimal"
)

type RequestLoanInput struct {
	HospitalID string
	Amount     decimal.Decimal
	Collateral decimal.Decimal
}
