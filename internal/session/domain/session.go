package domain

import "time"

// Session is an opaque server-side login session. It is immutable apart from the
// one-way transition to revoked.
type Session struct {
	ID        string // high-entropy token, also the cookie value
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time  // fixed at creation; no renewal
	RevokedAt *time.Time // nil when not revoked
}

// Valid reports whether the session authenticates at now.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// Principal is the authenticated account resolved from a valid session.
type Principal struct {
	SessionID string
	AccountID string
	Phone     string
	ExpiresAt time.Time
}
