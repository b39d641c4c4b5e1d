package repository

import (
	"context"
	"errors"
	"time"

	"vibhanet-auth/backend/internal/session/domain"
)

// ErrDuplicateID is returned by Create when the session id already exists.
var ErrDuplicateID = errors.New("session id already exists")

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetValid returns the principal for a session that is unrevoked and unexpired at now, or nil.
	GetValid(ctx context.Context, id string, now time.Time) (*domain.Principal, error)
	// Revoke sets revoked_at once. Returns false when the session is missing or already revoked.
	Revoke(ctx context.Context, id string, at time.Time) (bool, error)
}
