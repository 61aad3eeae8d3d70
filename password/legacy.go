package password

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
)

// Legacy is the deterministic, unsalted digest scheme pre-migration
// accounts were created with. It exists solely to match previously stored
// values byte for byte; nothing in this module ever stores a new legacy
// hash.
type Legacy struct{}

// NewLegacy returns the compatibility hasher.
func NewLegacy() *Legacy {
	return &Legacy{}
}

// Hash returns the lowercase hex digest of secret. Deterministic: the same
// secret always yields the same string, which is exactly why the scheme is
// deprecated.
func (*Legacy) Hash(secret string) string {
	sum := md5.Sum([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Matches recomputes the digest of secret and compares it against stored in
// constant time. There is no other verification mode for the legacy scheme.
func (l *Legacy) Matches(stored, secret string) bool {
	computed := l.Hash(secret)
	if len(stored) != len(computed) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(stored)) == 1
}
