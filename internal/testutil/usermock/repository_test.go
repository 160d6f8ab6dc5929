package usermock

import (
	"context"
	"errors"
	"testing"

	domain "credhealth/internal/domain/user"
)

func TestRepo_Defaults(t *testing.T) {
	ctx := context.Background()
	m := &Repo{}

	if err := m.Create(ctx, &domain.User{}); err != nil {
		t.Fatalf("Create default: %v", err)
	}
	if _, err := m.GetByUserID(ctx, "u"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByUserID default: want ErrNotFound, got %v", err)
	}
	if _, err := m.GetByEmail(ctx, "a@b.c"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByEmail default: want ErrNotFound, got %v", err)
	}
	if err := m.Save(ctx, &domain.User{}); err != nil {
		t.Fatalf("Save default: %v", err)
	}
}

func TestRepo_Forwards(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var saved string
	m := &Repo{
		GetByEmailFn: func(_ context.Context, email string) (*domain.User, error) {
			return &domain.User{UserID: "u1", Email: email}, nil
		},
		SaveFn: func(_ context.Context, u *domain.User) error {
			saved = u.UserID
			return boom
		},
	}
	u, err := m.GetByEmail(ctx, "ada@example.com")
	if err != nil || u.Email != "ada@example.com" {
		t.Fatalf("GetByEmail: %+v, %v", u, err)
	}
	if err := m.Save(ctx, u); !errors.Is(err, boom) || saved != "u1" {
		t.Fatalf("Save: err=%v saved=%q", err, saved)
	}
}
