package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Derivation parameters. The iteration count is deliberately high so that
// brute-forcing stolen digests stays expensive.
const (
	saltBytes  = 32     // 256-bit salt, hex-encoded to 64 chars
	keyBytes   = 32     // digest length before hex encoding
	iterations = 100000 // PBKDF2-HMAC-SHA256 rounds
)

// ErrInvalidSalt is returned when a stored salt cannot be decoded.
var ErrInvalidSalt = errors.New("invalid salt encoding")

// Hasher derives and verifies salted PBKDF2 password digests.
// The zero value is ready to use.
type Hasher struct{}

// New creates a new Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash generates a fresh random salt and derives the digest for password.
// Both digest and salt are returned hex-encoded.
func (h *Hasher) Hash(password string) (digest, salt string, err error) {
	raw := make([]byte, saltBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generate salt: %w", err)
	}
	salt = hex.EncodeToString(raw)
	return h.derive(password, salt), salt, nil
}

// Compare recomputes the digest of password with the stored salt and
// compares it to the stored digest in constant time. A malformed stored
// value never matches.
func (h *Hasher) Compare(password, digest, salt string) bool {
	if _, err := hex.DecodeString(salt); err != nil {
		return false
	}
	computed := h.derive(password, salt)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

// derive runs the key derivation. The hex salt string itself is the
// PBKDF2 salt input, matching digests produced by earlier deployments.
func (h *Hasher) derive(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), iterations, keyBytes, sha256.New)
	return hex.EncodeToString(key)
}
