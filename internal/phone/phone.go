// Package phone validates user-supplied phone numbers and normalizes them to E.164,
// the canonical form used as the account uniqueness and lookup key.
package phone

import (
	"errors"
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var (
	// ErrRequired is returned when the input is empty after trimming.
	ErrRequired = errors.New("phone number is required")
	// ErrInvalid is returned when the input is not a valid international number.
	ErrInvalid = errors.New("phone number is invalid")
)

// Normalize trims raw, requires a leading '+', parses it without a default region and
// returns the E.164 form. Inputs that denote the same number (spacing, punctuation,
// national trunk prefixes in brackets) normalize identically.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrRequired
	}
	if !strings.HasPrefix(s, "+") {
		return "", ErrInvalid
	}
	num, err := phonenumbers.Parse(s, phonenumbers.UNKNOWN_REGION)
	if err != nil {
		return "", ErrInvalid
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// CountryCode returns the calling-country code (e.g. "44") of a canonical number.
// Used for telemetry only; ok is false when it cannot be derived.
func CountryCode(e164 string) (code string, ok bool) {
	if e164 == "" {
		return "", false
	}
	num, err := phonenumbers.Parse(e164, phonenumbers.UNKNOWN_REGION)
	if err != nil || num.GetCountryCode() == 0 {
		return "", false
	}
	return strconv.Itoa(int(num.GetCountryCode())), true
}
