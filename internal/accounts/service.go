// Package accounts provides email/password account management: sign-up
// with admin approval, login, and the password change/reset flows.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/pasinduf/blog-platform/internal/store"
	"github.com/pasinduf/blog-platform/internal/util"
)

// ResetTokenTTL is how long a password reset link stays usable.
const ResetTokenTTL = time.Hour

var (
	ErrMissingFields      = errors.New("All fields are required")
	ErrInvalidEmail       = errors.New("Invalid email address")
	ErrEmailTaken         = errors.New("An account with this email already exists")
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrAccountPending     = errors.New("Account pending approval")
	ErrWeakPassword       = errors.New("Password must be at least 8 characters and contain a letter and a number")
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrWrongPassword      = errors.New("Current password is incorrect")
	ErrInvalidResetToken  = errors.New("Invalid or expired reset token")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UserStore is the storage surface the account flows need.
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	ResetUserPassword(ctx context.Context, userID, passwordHash string) error
	CreatePasswordResetToken(ctx context.Context, token store.PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, token string) (store.PasswordResetToken, error)
}

type Service struct {
	store UserStore
}

func NewService(store UserStore) *Service {
	return &Service{store: store}
}

type RegisterRequest struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new account in PENDING status. All validation
// runs before any write.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if firstName == "" || lastName == "" || email == "" || req.Password == "" {
		return store.User{}, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return store.User{}, ErrInvalidEmail
	}
	if !validPassword(req.Password) {
		return store.User{}, ErrWeakPassword
	}

	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "USER",
		Status:       "PENDING",
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login authenticates by email and password. Accounts that an admin
// has not approved yet cannot sign in.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if user.Status != "APPROVED" {
		return store.User{}, ErrAccountPending
	}
	return user, nil
}

// ChangePassword verifies the current password before writing the new one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next, confirm string) error {
	if next != confirm {
		return ErrPasswordMismatch
	}
	if !validPassword(next) {
		return ErrWeakPassword
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdateUserPassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ForgotPassword issues a reset token for the account. When the email
// is unknown it returns an empty token and no error so callers can
// answer without revealing which addresses exist.
func (s *Service) ForgotPassword(ctx context.Context, email string) (store.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, "", nil
	}

	token := store.PasswordResetToken{
		ID:        util.NewID("prt"),
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(ResetTokenTTL),
	}
	if err := s.store.CreatePasswordResetToken(ctx, token); err != nil {
		return store.User{}, "", fmt.Errorf("create reset token: %w", err)
	}
	return user, token.Token, nil
}

// ResetPassword consumes a reset token. The password update and the
// token invalidation commit together.
func (s *Service) ResetPassword(ctx context.Context, token, next, confirm string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	if next != confirm {
		return ErrPasswordMismatch
	}
	if !validPassword(next) {
		return ErrWeakPassword
	}

	reset, err := s.store.GetPasswordResetToken(ctx, token)
	if err != nil {
		return ErrInvalidResetToken
	}
	if time.Now().After(reset.ExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.ResetUserPassword(ctx, reset.UserID, string(hash)); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// validPassword requires at least 8 characters with at least one
// letter and one digit.
func validPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}
