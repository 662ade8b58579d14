package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost matches the cost the web client's accounts were created with.
const DefaultBcryptCost = 10

// PasswordHasher turns plaintext passwords into one-way hashes and checks them.
type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
	Verify(ctx context.Context, plaintext, hashed string) bool
}

// BcryptHasher is a salted, cost-configurable PasswordHasher.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hashed. Malformed hashes simply do not match.
func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hashed string) bool {
	if ctx.Err() != nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

var _ PasswordHasher = (*BcryptHasher)(nil)
