package service

import (
	"fmt"
	"time"

	sessiondomain "vibhanet-auth/backend/internal/session/domain"
)

// OutcomeKind discriminates the terminal result of an auth flow.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota + 1
	OutcomeSuccess
	OutcomeLoggedOut
	OutcomeValidation
	OutcomeConflict
	OutcomeInvalidCredentials
	OutcomeLocked
	OutcomeRateLimited
	OutcomeInternal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeSuccess:
		return "success"
	case OutcomeLoggedOut:
		return "logged_out"
	case OutcomeValidation:
		return "validation_error"
	case OutcomeConflict:
		return "conflict"
	case OutcomeInvalidCredentials:
		return "invalid_credentials"
	case OutcomeLocked:
		return "locked"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeInternal:
		return "internal_error"
	default:
		return "unknown"
	}
}

// Internal causes. They are logged and recorded but never shown to the user.
const (
	CauseUnknownPhone     = "unknown_phone"
	CauseBadPassword      = "bad_password"
	CauseThresholdReached = "threshold_reached"
	CauseAccountLocked    = "account_locked"
	CauseLockedConcurrent = "locked_concurrently"
	CauseIPLimit          = "ip_limit"
	CausePhoneLimit       = "phone_limit"
	CauseInvalidPhone     = "invalid_phone"
	CauseMissingPhone     = "missing_phone"
	CauseMissingPassword  = "missing_password"
	CauseShortPassword    = "short_password"
	CausePhoneTaken       = "phone_taken"
	CauseStorage          = "storage"
	CauseHashing          = "hashing"
	CauseSession          = "session"
)

// User-facing messages. Outcomes of the same kind share one message regardless of cause.
const (
	MsgPhoneRequired      = "Phone number is required"
	MsgPhoneInvalid       = "Enter a valid phone number with country code (e.g., +12025550123 / +447700900123 / +919876543210)"
	MsgPasswordRequired   = "Password is required"
	MsgPasswordTooShort   = "Use 8+ characters."
	MsgPhoneTaken         = "That phone number already has an account."
	MsgInvalidCredentials = "Phone or password is incorrect."
	MsgLoginRateLimited   = "Too many login attempts. Please try again later."
	MsgSignupRateLimited  = "Too many signup attempts. Please try again later."
	MsgInternal           = "Internal server error"
	MsgLoginSuccess       = "Login successful"
)

// Outcome is the single result of Signup, Login or Logout. Message is safe to show
// to the client; Cause and Err are for logs only.
type Outcome struct {
	Kind    OutcomeKind
	Message string
	Cause   string
	Err     error

	AccountID string
	Session   *sessiondomain.Session
	// RetryAfter is set for OutcomeRateLimited.
	RetryAfter time.Duration
}

// OK reports whether the flow succeeded.
func (o Outcome) OK() bool {
	switch o.Kind {
	case OutcomeCreated, OutcomeSuccess, OutcomeLoggedOut:
		return true
	}
	return false
}

// LockedMessage renders the lockout message from the configured duration, never from
// the remaining lock time.
func LockedMessage(d time.Duration) string {
	minutes := int(d.Round(time.Minute) / time.Minute)
	if minutes <= 1 {
		return "Too many attempts. Try again in 1 minute."
	}
	return fmt.Sprintf("Too many attempts. Try again in %d minutes.", minutes)
}

func validation(msg, cause string) Outcome {
	return Outcome{Kind: OutcomeValidation, Message: msg, Cause: cause}
}

func internal(cause string, err error) Outcome {
	return Outcome{Kind: OutcomeInternal, Message: MsgInternal, Cause: cause, Err: err}
}

func invalidCredentials(cause, accountID string) Outcome {
	return Outcome{Kind: OutcomeInvalidCredentials, Message: MsgInvalidCredentials, Cause: cause, AccountID: accountID}
}
