package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when a username/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Hasher turns passwords into opaque credentials and verifies them.
// This abstraction keeps callers independent of the hashing algorithm
// (bcrypt, argon2, ...).
type Hasher interface {
	// Hash returns an opaque credential for password.
	Hash(password string) (string, error)

	// Verify reports whether password matches the stored credential.
	Verify(credential, password string) bool
}

// BcryptHasher implements Hasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher. A cost of 0 selects
// bcrypt.DefaultCost; tests use bcrypt.MinCost to stay fast.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash hashes the password with a random salt.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares the password against the bcrypt hash in constant time.
func (h *BcryptHasher) Verify(credential, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(credential), []byte(password)) == nil
}
