package gormrepo

import (
	"context"
	"errors"

	hospitalDomain "credhealth/internal/domain/hospital"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type HospitalRepository struct{ db *gorm.DB }

func NewHospitalRepository(db *gorm.DB) *HospitalRepository { return &HospitalRepository{db: db} }

// Create inserts h and its Admins in one statement batch.
func (r *HospitalRepository) Create(ctx context.Context, h *hospitalDomain.Hospital) error {
	err := r.db.WithContext(ctx).Create(h).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return hospitalDomain.ErrWalletTaken
	}
	return err
}

func (r *HospitalRepository) GetByHospitalID(ctx context.Context, hospitalID string) (*hospitalDomain.Hospital, error) {
	return r.first(ctx, "hospital_id = ?", hospitalID)
}

func (r *HospitalRepository) GetByWallet(ctx context.Context, wallet string) (*hospitalDomain.Hospital, error) {
	return r.first(ctx, "wallet_address = ?", wallet)
}

func (r *HospitalRepository) first(ctx context.Context, query string, arg any) (*hospitalDomain.Hospital, error) {
	var out hospitalDomain.Hospital
	res := r.db.WithContext(ctx).Preload("Admins").Where(query, arg).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, hospitalDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

func (r *HospitalRepository) List(ctx context.Context) ([]hospitalDomain.Hospital, error) {
	var out []hospitalDomain.Hospital
	err := r.db.WithContext(ctx).Preload("Admins").Order("id ASC").Find(&out).Error
	return out, err
}

// RecordDisbursement increments the counters in SQL so concurrent disbursements never lose an
// update.
func (r *HospitalRepository) RecordDisbursement(ctx context.Context, hospitalID string, amount decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&hospitalDomain.Hospital{}).
		Where("hospital_id = ?", hospitalID).
		Updates(map[string]any{
			"total_loans_processed":  gorm.Expr("total_loans_processed + ?", 1),
			"total_amount_disbursed": gorm.Expr("total_amount_disbursed + ?", amount),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return hospitalDomain.ErrNotFound
	}
	return nil
}
