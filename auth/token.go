package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/homebudget/budget-engine/ledger"
)

// DefaultTokenTTL is how long an issued token stays valid.
const DefaultTokenTTL = 350 * 24 * time.Hour

// ErrUnauthorized is returned for a missing, malformed or expired token.
var ErrUnauthorized = errors.New("unauthorized request")

// Claims is the token payload.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 bearer tokens.
type Issuer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

// NewIssuer creates an issuer. A zero ttl means DefaultTokenTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Issuer{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

// Issue returns a signed token for userID.
func (i *Issuer) Issue(userID ledger.UserID) (string, error) {
	now := i.Now()
	claims := Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and expiry and returns its user.
func (i *Issuer) Verify(token string) (ledger.UserID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no user", ErrUnauthorized)
	}
	return ledger.UserID(claims.UserID), nil
}

// =============================================================================
// CONTEXT
// =============================================================================

type contextKey struct{}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, userID ledger.UserID) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserFrom returns the authenticated user stored by WithUser.
func UserFrom(ctx context.Context) (ledger.UserID, bool) {
	id, ok := ctx.Value(contextKey{}).(ledger.UserID)
	return id, ok && id != ""
}
