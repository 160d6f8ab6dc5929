package loan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("loan not found")
	ErrInvalidInput           = errors.New("invalid loan input")
	ErrInvalidStateTransition = errors.New("invalid loan state transition")
	ErrSettlementFailed       = errors.New("settlement failed")
	// ErrStaleState is returned by a conditional update that matched no row because the
	// loan left the expected source state after it was read.
	ErrStaleState = errors.New("loan state changed concurrently")
)

type State string

const (
	StateRequested State = "REQUESTED"
	StateApproved  State = "APPROVED"
	StateRejected  State = "REJECTED"
	StateDisbursed State = "DISBURSED"
	StateRepaid    State = "REPAID"
	StateDefaulted State = "DEFAULTED"
)

// Terminal reports whether no trigger leads out of s.
func (s State) Terminal() bool {
	return s == StateRejected || s == StateRepaid || s == StateDefaulted
}

// InterestRate is the flat interest charged on every loan.
var InterestRate = decimal.RequireFromString("0.05")

// RepaymentFor returns amount plus flat interest.
func RepaymentFor(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(InterestRate))
}

type Loan struct {
	ID                    uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID                string          `gorm:"size:26;uniqueIndex;not null" json:"id"`
	PatientID             string          `gorm:"size:26;not null;index" json:"patient_id"`
	HospitalID            string          `gorm:"size:26;not null;index" json:"hospital_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Collateral            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"collateral"`
	RepaymentAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"repayment_amount"`
	Status                State           `gorm:"size:16;not null;index;default:'REQUESTED'" json:"status"`
	RequestTimestamp      time.Time       `gorm:"not null" json:"request_timestamp"`
	ApprovalTimestamp     *time.Time      `json:"approval_timestamp,omitempty"`
	DisbursementTimestamp *time.Time      `json:"disbursement_timestamp,omitempty"`
	RepaymentTimestamp    *time.Time      `json:"repayment_timestamp,omitempty"`
	BlockchainTxHash      *string         `gorm:"size:128" json:"blockchain_tx_hash,omitempty"`
	StateUpdatedAt        time.Time       `json:"state_updated_at"`
	CreatedAt             time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }
