package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the caller identity embedded in a token.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Claims is the signed token payload.
type Claims struct {
	Identity
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 tokens with a process-wide secret.
// A zero ttl issues tokens without an exp claim.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("token ttl must not be negative, got %s", ttl)
	}
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (m *TokenManager) Issue(identity Identity) (string, error) {
	now := m.now()
	claims := Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature (and exp, when present) and returns its identity.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	identity := claims.Identity
	return &identity, nil
}

// BearerToken extracts the token from an Authorization header value: the
// second space-separated field, whatever the scheme word says. Only a header
// without a second field counts as missing; an empty field is returned as ""
// and fails verification.
func BearerToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return "", ErrMissingToken
	}
	return parts[1], nil
}
