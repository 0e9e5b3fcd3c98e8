// Package crypto provides bcrypt password hashing and verification.
package crypto

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes passwords with a fixed bcrypt cost.
type PasswordHasher struct {
	cost int
	// dummy is compared against when the account does not exist, so that a failed
	// lookup takes as long as a failed password check.
	dummy []byte
}

// NewPasswordHasher returns a hasher; cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("bookshelf-dummy-password"), cost)
	return &PasswordHasher{cost: cost, dummy: dummy}
}

// Hash generates a salted bcrypt hash of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(hash), err
}

// Check reports whether password matches hash.
func (h *PasswordHasher) Check(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckMissing burns one comparison against the dummy hash and always reports false.
func (h *PasswordHasher) CheckMissing(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
