package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/florafleet/pollination-api/internal/core/port"
)

// JWTIssuer signs and verifies HS256 bearer tokens with a server
// secret. The purpose claim scopes a token to one flow, so a reset
// token can never pass as an access token.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

type tokenClaims struct {
	AccountID string `json:"uid"`
	Purpose   string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTIssuer constructs an issuer. The secret must not be empty.
func NewJWTIssuer(secret, issuer string) (*JWTIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt: signing secret is required")
	}
	return &JWTIssuer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source. Intended for tests.
func (i *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	i.now = now
	return i
}

// Issue signs a token for the account with the given purpose and TTL.
func (i *JWTIssuer) Issue(accountID, purpose string, ttl time.Duration) (string, error) {
	if accountID == "" {
		return "", errors.New("jwt: account id is required")
	}
	if ttl <= 0 {
		return "", errors.New("jwt: ttl must be positive")
	}

	now := i.now().UTC()
	claims := tokenClaims{
		AccountID: accountID,
		Purpose:   purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature and expiry and returns the claims.
// Expired tokens map to port.ErrTokenExpired, everything else to
// port.ErrTokenInvalid.
func (i *JWTIssuer) Parse(token string) (*port.TokenClaims, error) {
	var claims tokenClaims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(i.issuer),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, port.ErrTokenExpired
		}
		return nil, port.ErrTokenInvalid
	}
	if !parsed.Valid || claims.AccountID == "" {
		return nil, port.ErrTokenInvalid
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &port.TokenClaims{
		AccountID: claims.AccountID,
		Purpose:   claims.Purpose,
		ExpiresAt: expiresAt,
	}, nil
}

var _ port.TokenIssuer = (*JWTIssuer)(nil)
