package gormrepo

import (
	"credhealth/internal/domain/hospital"
	"credhealth/internal/domain/loan"
	"credhealth/internal/domain/user"

	"gorm.io/gorm"
)

// Models lists every table owned by this service, in creation order.
func Models() []any {
	return []any{&user.User{}, &hospital.Hospital{}, &hospital.Admin{}, &loan.Loan{}}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
