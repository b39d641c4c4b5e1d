package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	argon2Version = argon2.Version
	saltLen       = 16
	keyLen        = 32

	maxSaltLen = 64
	maxKeyLen  = 128
)

// Upper bounds on cost parameters, both for configuration and for hashes read back
// from storage. Parse rejects anything larger so a corrupted row cannot force a huge
// allocation.
const (
	MaxArgon2Memory     = 1 << 20 // KiB, 1 GiB
	MaxArgon2Iterations = 64
)

// ErrMalformedHash is returned by Parse for stored hashes that are not a recognised
// argon2id PHC string.
var ErrMalformedHash = errors.New("malformed password hash")

// Argon2Params are the cost parameters for new hashes. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
}

// DefaultArgon2Params matches 64 MiB, 2 passes, 1 lane.
var DefaultArgon2Params = Argon2Params{Memory: 64 * 1024, Iterations: 2, Parallelism: 1}

// Hasher hashes and verifies passwords. New hashes use argon2id with the configured
// parameters encoded into the output, so verification reads the cost from the stored
// hash and never from configuration. Legacy bcrypt hashes are still accepted by Verify.
// Callers must not log or persist plaintext passwords.
type Hasher struct {
	params Argon2Params
	rand   func([]byte) (int, error)
}

// NewHasher returns a Hasher. Zero parameters fall back to DefaultArgon2Params.
func NewHasher(p Argon2Params) *Hasher {
	if p.Memory == 0 {
		p.Memory = DefaultArgon2Params.Memory
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultArgon2Params.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = DefaultArgon2Params.Parallelism
	}
	return &Hasher{params: p, rand: rand.Read}
}

// Params returns the parameters used for new hashes.
func (h *Hasher) Params() Argon2Params {
	return h.params
}

// Hash returns a PHC-formatted argon2id hash of password:
// $argon2id$v=19$m=<KiB>,t=<iterations>,p=<lanes>$<salt>$<key>.
func (h *Hasher) Hash(password []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := h.rand(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey(password, salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, keyLen)
	enc := base64.RawStdEncoding
	s := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key))
	return []byte(s), nil
}

// Verify reports whether password matches the stored hash. Malformed or unknown
// hashes verify as false; Verify never panics on stored input.
func (h *Hasher) Verify(hash, password []byte) bool {
	if isBcrypt(hash) {
		return bcrypt.CompareHashAndPassword(hash, password) == nil
	}
	p, salt, key, err := Parse(hash)
	if err != nil {
		return false
	}
	got := argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

// NeedsRehash reports whether hash was produced with parameters other than the
// current ones (or with a legacy algorithm).
func (h *Hasher) NeedsRehash(hash []byte) bool {
	p, _, _, err := Parse(hash)
	if err != nil {
		return true
	}
	return p != h.params
}

// Parse decodes an argon2id PHC string into its parameters, salt and derived key.
func Parse(hash []byte) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	parts := strings.Split(string(hash), "$")
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, ErrMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2Version {
		return p, nil, nil, ErrMalformedHash
	}
	var parallelism uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &parallelism); err != nil {
		return p, nil, nil, ErrMalformedHash
	}
	if p.Memory == 0 || p.Memory > MaxArgon2Memory ||
		p.Iterations == 0 || p.Iterations > MaxArgon2Iterations ||
		parallelism == 0 || parallelism > 255 {
		return p, nil, nil, ErrMalformedHash
	}
	p.Parallelism = uint8(parallelism)
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 || len(salt) > maxSaltLen {
		return p, nil, nil, ErrMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLen {
		return p, nil, nil, ErrMalformedHash
	}
	return p, salt, key, nil
}

func isBcrypt(hash []byte) bool {
	s := string(hash)
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
