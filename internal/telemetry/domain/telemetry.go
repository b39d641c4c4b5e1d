package domain

import "time"

// Auth event names. Also used as metric instrument names.
const (
	EventSignupSuccess    = "auth.signup.success"
	EventSignupConflict   = "auth.signup.conflict"
	EventLoginSuccess     = "auth.login.success"
	EventLoginFailure     = "auth.login.failure"
	EventLoginLocked      = "auth.login.locked"
	EventLoginRateLimited = "auth.login.rate_limited"
)

// AuthEvent is a non-identifying record of an auth flow outcome. It never
// carries the phone number, only the calling-country code.
type AuthEvent struct {
	Name        string
	AccountID   string // empty when no account was resolved
	CountryCode string // empty when not derivable
	Reason      string // internal cause tag, e.g. unknown_phone, bad_password
	CreatedAt   time.Time
}
