package gormrepo

import (
	"context"
	"errors"

	userDomain "credhealth/internal/domain/user"

	"gorm.io/gorm"
)

type UserRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) *UserRepository { return &UserRepository{db: db} }

func (r *UserRepository) Create(ctx context.Context, u *userDomain.User) error {
	err := r.db.WithContext(ctx).Create(u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return userDomain.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByUserID(ctx context.Context, userID string) (*userDomain.User, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*userDomain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *UserRepository) first(ctx context.Context, query string, arg any) (*userDomain.User, error) {
	var out userDomain.User
	res := r.db.WithContext(ctx).Where(query, arg).First(&out)
	if errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return nil, userDomain.ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return &out, nil
}

// Save persists the profile fields. Email and role never change after registration.
func (r *UserRepository) Save(ctx context.Context, u *userDomain.User) error {
	err := r.db.WithContext(ctx).
		Model(&userDomain.User{}).
		Where("user_id = ?", u.UserID).
		Updates(map[string]any{
			"name":           u.Name,
			"wallet_address": u.WalletAddress,
			"credit_score":   u.CreditScore,
		}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return userDomain.ErrWalletTaken
	}
	return err
}
