// Package resettoken produces and checks the one-time password-reset
// secrets mailed to users.
//
// The plaintext secret is high-entropy and returned exactly once; only its
// SHA-256 digest is ever persisted. A fast digest suffices at rest because
// the secret is 32 random bytes, not a user-chosen value.
package resettoken

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const secretSize = 32

// Generate returns a fresh plaintext secret and its at-rest digest, both
// hex encoded. The caller owns the expiry.
func Generate() (secret, digest string, err error) {
	raw := make([]byte, secretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret = hex.EncodeToString(raw)
	return secret, Hash(secret), nil
}

// Hash computes the at-rest digest of a plaintext secret.
func Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Matches reports whether candidate hashes to storedDigest.
func Matches(candidate, storedDigest string) bool {
	stored, err := hex.DecodeString(storedDigest)
	if err != nil || len(stored) != sha256.Size {
		return false
	}
	sum := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(sum[:], stored) == 1
}
