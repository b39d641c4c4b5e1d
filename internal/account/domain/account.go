package domain

import (
	"errors"
	"time"
)

// Account is a phone-and-password login identity.
type Account struct {
	ID           string
	Phone        string // canonical E.164; unique
	PasswordHash []byte // self-describing hash; never logged
	// FailedLoginCount and LockedUntil are written only by the login flow.
	FailedLoginCount  int
	LastFailedLoginAt *time.Time
	LockedUntil       *time.Time // nil when not locked
	CreatedAt         time.Time
	PasswordUpdatedAt time.Time
}

// Validate validates the account for insertion. Returns an error describing the first validation failure.
func (a *Account) Validate() error {
	if a.ID == "" {
		return errors.New("account id is required")
	}
	if a.Phone == "" {
		return errors.New("phone is required")
	}
	if len(a.PasswordHash) == 0 {
		return errors.New("password hash is required")
	}
	if a.FailedLoginCount != 0 || a.LockedUntil != nil {
		return errors.New("new accounts start with no failed logins")
	}
	return nil
}

// IsLocked reports whether the account is locked at now.
func (a *Account) IsLocked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
