// Package security wraps the password hashing primitive behind a small
// capability interface so the auth flow can be tested without paying
// bcrypt cost on every assertion.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier hashes and checks plaintext passwords.
type PasswordVerifier interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// Bcrypt is the production PasswordVerifier.
type Bcrypt struct {
	Cost int
}

func NewBcrypt() *Bcrypt {
	return &Bcrypt{Cost: bcrypt.DefaultCost}
}

func (b *Bcrypt) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
