package security

import (
	"errors"
	"unicode/utf8"
)

// MinPasswordLength is the minimum number of characters in a new password.
const MinPasswordLength = 8

var (
	// ErrPasswordRequired is returned for an empty password.
	ErrPasswordRequired = errors.New("password is required")
	// ErrPasswordTooShort is returned for passwords under MinPasswordLength characters.
	ErrPasswordTooShort = errors.New("password is too short")
)

// ValidatePassword checks the signup password policy.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
