package port

import (
	"errors"
	"time"
)

// Token purposes scope an issued token to a single use.
const (
	TokenPurposeAccess        = "access"
	TokenPurposePasswordReset = "password_reset"
)

var (
	// ErrTokenExpired is returned by Parse when the token signature is
	// valid but its lifetime has elapsed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Parse for any other verification
	// failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenClaims is the verified content of a bearer token.
type TokenClaims struct {
	AccountID string
	Purpose   string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies bearer tokens bound to one account.
type TokenIssuer interface {
	Issue(accountID, purpose string, ttl time.Duration) (string, error)
	Parse(token string) (*TokenClaims, error)
}

// PasswordHasher derives and verifies one-way salted password hashes.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}
