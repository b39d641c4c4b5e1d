package repository

import (
	"context"
	"errors"
	"time"

	"vibhanet-auth/backend/internal/account/domain"
)

// ErrPhoneTaken is returned by Create when the canonical phone is already registered.
var ErrPhoneTaken = errors.New("phone already registered")

// Repository defines persistence for accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Account, error)
	Create(ctx context.Context, a *domain.Account) error
	// RecordLoginFailure applies policy to the account in a single conditional update.
	// It writes nothing and returns Applied=false when the account is locked at now or missing.
	RecordLoginFailure(ctx context.Context, id string, policy domain.LockoutPolicy, now time.Time) (domain.FailureResult, error)
	// ResetLoginFailures clears the failure counter and any lock.
	ResetLoginFailures(ctx context.Context, id string) error
	// UpdatePasswordHash replaces the stored hash without changing password_updated_at.
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}
