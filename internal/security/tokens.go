// Package security holds the password policy, password hashing and session token generation.
package security

import (
	"crypto/rand"
	"encoding/base64"
)

// sessionTokenBytes is the entropy of a session token (256 bits).
const sessionTokenBytes = 32

// NewSessionToken returns a URL-safe random session token.
func NewSessionToken() (string, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
