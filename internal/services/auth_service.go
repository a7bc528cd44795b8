// Package services – AuthService
//
// This file implements signup and login. Passwords are stored as bcrypt
// hashes; login failures never reveal whether the email exists.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/repo"
)

// Password length bounds in bytes. bcrypt ignores everything past 72 bytes.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// TokenIssuer signs identity tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, email string) (string, error)
}

// AuthService registers users and authenticates them.
type AuthService struct {
	DB     *gorm.DB
	Tokens TokenIssuer

	// Cost is the bcrypt work factor.
	Cost int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService returns an AuthService using bcrypt.DefaultCost.
func NewAuthService(db *gorm.DB, tokens TokenIssuer) *AuthService {
	return &AuthService{DB: db, Tokens: tokens, Cost: bcrypt.DefaultCost}
}

var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateCredentials checks the email shape and password length.
func ValidateCredentials(email, password string) error {
	if len(email) > 320 || !emailRE.MatchString(email) {
		return ErrInvalidEmail
	}
	if len(password) < MinPasswordLen || len(password) > MaxPasswordLen {
		return ErrWeakPassword
	}
	return nil
}

// VerifyPassword reports whether plaintext matches the bcrypt hash.
func VerifyPassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// Signup creates a user. The email is normalized first, so registrations
// differing only in case or surrounding space collide with ErrEmailTaken.
func (s *AuthService) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Signup")
	defer span.End()

	email = NormalizeEmail(email)
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	if _, err := repo.FindUserByEmail(ctx, s.DB, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost())
	if err != nil {
		return nil, err
	}
	u, err := repo.CreateUser(ctx, s.DB, email, string(hash))
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost a race with a concurrent signup.
		return nil, ErrEmailTaken
	}
	return u, err
}

// Login verifies the credentials and returns a signed token with the user.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials, and
// both run one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Login")
	defer span.End()

	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	u, err := repo.FindUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) cost() int {
	if s.Cost < bcrypt.MinCost || s.Cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

// dummy returns a hash of the same cost as real ones, computed once.
func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost())
	})
	return s.dummyHash
}
