// Package password provides one-way password hashing and verification with
// a tunable bcrypt work factor.
//
// Hashing is salted per call (two hashes of the same plaintext differ) and
// verification relies on bcrypt's constant-time comparison. The package is
// side-effect free and performs no I/O.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minProductionCost = 10

// Config tunes the hasher.
type Config struct {
	// Cost is the bcrypt work factor. Offline brute-force resistance
	// requires at least 10; tests may go as low as bcrypt.MinCost.
	Cost int
}

// Hasher performs the one-way password transform. Safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher validates cfg and returns a hasher.
func NewHasher(cfg Config) (*Hasher, error) {
	if cfg.Cost < bcrypt.MinCost || cfg.Cost > bcrypt.MaxCost {
		return nil, errors.New("bcrypt cost out of range")
	}
	return &Hasher{cost: cfg.Cost}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// MeetsProductionCost reports whether the configured work factor is high
// enough for a production deployment.
func (h *Hasher) MeetsProductionCost() bool {
	return h.cost >= minProductionCost
}

// Hash computes the salted one-way transform of plaintext. Output differs
// between calls on the same input.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", errors.New("empty password")
	}
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether plaintext matches the stored hash. The comparison
// does not leak timing correlated with prefix match. A non-nil error means
// the stored hash itself is malformed.
func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}
