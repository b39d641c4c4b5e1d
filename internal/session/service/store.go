package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vibhanet-auth/backend/internal/security"
	"vibhanet-auth/backend/internal/session/domain"
	"vibhanet-auth/backend/internal/session/repository"
)

// maxCreateAttempts bounds token regeneration when a freshly drawn token collides.
const maxCreateAttempts = 3

// Store issues, validates and revokes opaque sessions with a fixed lifetime.
type Store struct {
	repo     repository.Repository
	ttl      time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

// NewStore returns a Store whose sessions live for ttl from creation.
func NewStore(repo repository.Repository, ttl time.Duration) *Store {
	return &Store{
		repo:     repo,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: security.NewSessionToken,
	}
}

// WithClock replaces the time source. Used by tests and the orchestrator to share one clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// TTL returns the session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Create issues a new session for accountID. Tokens are never reused; on the
// improbable collision a new token is drawn.
func (s *Store) Create(ctx context.Context, accountID string) (*domain.Session, error) {
	now := s.now()
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate session token: %w", err)
		}
		sess := &domain.Session{
			ID:        token,
			AccountID: accountID,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		err = s.repo.Create(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return nil, err
		}
	}
	return nil, repository.ErrDuplicateID
}

// Validate resolves the principal for token, or nil when the session is absent,
// revoked or expired.
func (s *Store) Validate(ctx context.Context, token string) (*domain.Principal, error) {
	if token == "" {
		return nil, nil
	}
	return s.repo.GetValid(ctx, token, s.now())
}

// Revoke ends the session. Revoking an unknown or already revoked session is a no-op.
func (s *Store) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := s.repo.Revoke(ctx, token, s.now())
	return err
}
