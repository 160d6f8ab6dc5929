package gormrepo

import (
	"context"
	"errors"
	"time"

	loanDomain "credhealth/internal/domain/loan"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, loanDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *LoanRepository) ListByPatient(ctx context.Context, patientID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("request_timestamp DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *LoanRepository) ListByHospital(ctx context.Context, hospitalID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).
		Where("hospital_id = ?", hospitalID).
		Order("request_timestamp DESC, id DESC").
		Find(&out).Error
	return out, err
}

func (r *LoanRepository) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]loanDomain.Loan, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []loanDomain.Loan
	err := r.db.WithContext(ctx).
		Where("status = ? AND disbursement_timestamp < ?", loanDomain.StateDisbursed, cutoff.UTC()).
		Order("disbursement_timestamp ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateStateIf writes only the lifecycle columns, guarded by the expected source status, so
// of two racing transitions on the same loan exactly one matches a row.
func (r *LoanRepository) UpdateStateIf(ctx context.Context, l *loanDomain.Loan, from loanDomain.State) error {
	res := r.db.WithContext(ctx).
		Model(&loanDomain.Loan{}).
		Where("loan_id = ? AND status = ?", l.LoanID, from).
		Updates(map[string]any{
			"status":                 l.Status,
			"approval_timestamp":     l.ApprovalTimestamp,
			"disbursement_timestamp": l.DisbursementTimestamp,
			"repayment_timestamp":    l.RepaymentTimestamp,
			"blockchain_tx_hash":     l.BlockchainTxHash,
			"state_updated_at":       l.StateUpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return loanDomain.ErrStaleState
	}
	return nil
}
