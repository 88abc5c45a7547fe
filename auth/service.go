/*
Package auth is the identity collaborator: phone-number registration and
login, and the bearer tokens every other operation trusts.

FLOW:
  Register(phone, name) -> user + token   (409 when the phone exists)
  Login(phone)          -> user + token   (404 when unknown)
  Verify(token)         -> user id        (401 when invalid)

Phones are stored in E.164 form after NormalizePhone.
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/homebudget/budget-engine/ledger"
)

// ErrUserNotFound is returned by Login for an unknown phone number.
var ErrUserNotFound = errors.New("user not found, please register")

// User is a registered account.
type User struct {
	ID            ledger.UserID
	PhoneNumber   string
	DisplayName   string
	PhoneVerified bool
	IsActive      bool
	CreatedAt     time.Time
}

// UserStore persists users. CreateUser returns ledger.ErrConflict when the
// phone number is taken; GetUserByPhone returns (nil, nil) when unknown.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUserByPhone(ctx context.Context, phone string) (*User, error)
}

// Service registers and logs in users.
type Service struct {
	Users       UserStore
	Tokens      *Issuer
	CountryCode string
	Logger      *slog.Logger
}

// NewService creates an auth service.
func NewService(users UserStore, tokens *Issuer, countryCode string, logger *slog.Logger) *Service {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Users:       users,
		Tokens:      tokens,
		CountryCode: countryCode,
		Logger:      logger.With("component", "auth"),
	}
}

// Register creates a user and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, phone, displayName string) (*User, string, error) {
	displayName = strings.TrimSpace(displayName)
	if strings.TrimSpace(phone) == "" || displayName == "" {
		return nil, "", &ledger.ValidationError{Field: "phoneNumber", Message: "phone number and display name are required"}
	}
	if n := utf8.RuneCountInString(displayName); n < 3 || n > 30 {
		return nil, "", &ledger.ValidationError{Field: "displayName", Message: "display name must be between 3 and 30 characters"}
	}

	normalized := NormalizePhone(phone, s.CountryCode)
	if !ValidPhone(normalized) {
		return nil, "", &ledger.ValidationError{Field: "phoneNumber", Message: "provide a valid phone number in E.164 format (e.g. +1234567890)"}
	}

	existing, err := s.Users.GetUserByPhone(ctx, normalized)
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, "", fmt.Errorf("%w: user with this phone number already exists", ledger.ErrConflict)
	}

	u := User{
		ID:          ledger.UserID(ledger.NewID()),
		PhoneNumber: normalized,
		DisplayName: displayName,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Users.CreateUser(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	s.Logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return &u, token, nil
}

// Login returns the user registered with phone and a fresh token.
func (s *Service) Login(ctx context.Context, phone string) (*User, string, error) {
	if strings.TrimSpace(phone) == "" {
		return nil, "", &ledger.ValidationError{Field: "phoneNumber", Message: "phone number is required"}
	}

	u, err := s.Users.GetUserByPhone(ctx, NormalizePhone(phone, s.CountryCode))
	if err != nil {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, "", ErrUserNotFound
	}

	token, err := s.Tokens.Issue(u.ID)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
