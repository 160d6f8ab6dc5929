package hospital

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound     = errors.New("hospital not found")
	ErrWalletTaken  = errors.New("hospital with this wallet address already exists")
	ErrInvalidInput = errors.New("invalid hospital input")
)

type Hospital struct {
	ID                   uint64          `gorm:"primaryKey;column:id" json:"-"`
	HospitalID           string          `gorm:"size:26;uniqueIndex;not null" json:"id"`
	Name                 string          `gorm:"size:255;not null" json:"name"`
	Address              string          `gorm:"type:text;not null" json:"address"`
	WalletAddress        string          `gorm:"size:64;uniqueIndex;not null" json:"wallet_address"`
	TotalLoansProcessed  int64           `gorm:"not null;default:0" json:"total_loans_processed"`
	TotalAmountDisbursed decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_amount_disbursed"`
	Admins               []Admin         `gorm:"foreignKey:HospitalID;references:HospitalID" json:"admins"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Hospital) TableName() string { return "hospitals" }

// Admin is one membership row of a hospital's admin set.
type Admin struct {
	ID         uint64 `gorm:"primaryKey;column:id" json:"-"`
	HospitalID string `gorm:"size:26;not null;uniqueIndex:ux_hospital_admins_member" json:"-"`
	UserID     string `gorm:"size:26;not null;uniqueIndex:ux_hospital_admins_member" json:"user_id"`
}

func (Admin) TableName() string { return "hospital_admins" }

// HasAdmin reports whether userID is in the admin set. Admins must be preloaded.
func (h *Hospital) HasAdmin(userID string) bool {
	if h == nil || userID == "" {
		return false
	}
	for _, a := range h.Admins {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
