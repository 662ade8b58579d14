package auth

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	hasher, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("new hasher: %v", err)
	}
	ctx := context.Background()

	hash, err := hasher.Hash(ctx, "pw1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "pw1" {
		t.Fatal("hash equals plaintext")
	}
	if cost, err := bcrypt.Cost([]byte(hash)); err != nil || cost != bcrypt.MinCost {
		t.Fatalf("cost = %d (err %v), want %d", cost, err, bcrypt.MinCost)
	}
	if !hasher.Verify(ctx, "pw1", hash) {
		t.Fatal("correct password rejected")
	}
	if hasher.Verify(ctx, "pw2", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestBcryptHasherSalted(t *testing.T) {
	hasher, _ := NewBcryptHasher(bcrypt.MinCost)
	ctx := context.Background()

	a, _ := hasher.Hash(ctx, "same")
	b, _ := hasher.Hash(ctx, "same")
	if a == b {
		t.Fatal("identical hashes for identical input; salt missing")
	}
}

func TestBcryptHasherVerifyMalformedHash(t *testing.T) {
	hasher, _ := NewBcryptHasher(bcrypt.MinCost)
	for _, hashed := range []string{"", "not-a-hash", "$2a$10$short"} {
		if hasher.Verify(context.Background(), "pw", hashed) {
			t.Fatalf("Verify(%q) = true", hashed)
		}
	}
}

func TestBcryptHasherRejectsOverlongPassword(t *testing.T) {
	hasher, _ := NewBcryptHasher(bcrypt.MinCost)
	if _, err := hasher.Hash(context.Background(), strings.Repeat("x", 100)); err == nil {
		t.Fatal("expected error for password longer than 72 bytes")
	}
}

func TestNewBcryptHasherCostRange(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost - 1, bcrypt.MaxCost + 1} {
		if _, err := NewBcryptHasher(cost); err == nil {
			t.Fatalf("cost %d accepted", cost)
		}
	}
}
