// Package auth issues and verifies the signed, time-limited identity tokens
// that authenticate API calls. Tokens are HS256 JWTs carrying the user id
// (sub) and email; nothing about them is persisted server-side.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated principal extracted from a valid token.
type Identity struct {
	UserID string
	Email  string
}

// Claims is the JWT payload.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies identity tokens with a shared secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration

	// now is the clock; tests override it.
	now func() time.Time
}

// NewTokenService returns a TokenService. The secret must not be empty and
// ttl must be positive; config validation guarantees both at startup.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token ttl must be positive")
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL reports how long issued tokens stay valid.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue returns a signed token for the user valid for the configured TTL.
func (s *TokenService) Issue(userID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify parses and validates token. It reports false for empty, malformed,
// tampered, expired, or foreign-algorithm tokens; callers treat false as
// unauthenticated and never see the underlying reason.
func (s *TokenService) Verify(token string) (Identity, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, false
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return Identity{}, false
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, true
}
