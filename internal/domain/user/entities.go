package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("user not found")
	ErrEmailTaken      = errors.New("email is already taken")
	ErrWalletTaken     = errors.New("wallet address is already linked to another user")
	ErrInvalidInput    = errors.New("invalid user input")
	ErrUnauthenticated = errors.New("authentication required")
	ErrUnauthorized    = errors.New("not authorized")
)

type Role string

const (
	RolePatient       Role = "PATIENT"
	RoleHospitalAdmin Role = "HOSPITAL_ADMIN"
	// RoleSystem is never issued to a user; it marks internal callers such as the
	// default sweeper or automated settlement.
	RoleSystem Role = "SYSTEM"
)

// Valid reports whether r can be assigned at registration.
func (r Role) Valid() bool { return r == RolePatient || r == RoleHospitalAdmin }

type User struct {
	ID            uint64    `gorm:"primaryKey;column:id" json:"-"`
	UserID        string    `gorm:"size:26;uniqueIndex;not null" json:"id"`
	Name          string    `gorm:"size:255;not null" json:"name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"size:255;not null" json:"-"`
	WalletAddress *string   `gorm:"size:64;uniqueIndex" json:"wallet_address,omitempty"`
	Role          Role      `gorm:"size:16;not null;default:'PATIENT'" json:"role"`
	CreditScore   *float64  `json:"credit_score,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Caller is the authenticated identity behind a request.
type Caller struct {
	UserID string
	Role   Role
}

// System is the caller used by background jobs.
var System = Caller{UserID: "system", Role: RoleSystem}

func (c Caller) Authenticated() bool { return c.UserID != "" && c.Role != "" }

func (c Caller) IsSystem() bool { return c.Role == RoleSystem }
