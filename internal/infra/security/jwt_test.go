package security

import (
	"errors"
	"testing"
	"time"

	"github.com/florafleet/pollination-api/internal/core/port"
)

func TestJWTIssueAndParse(t *testing.T) {
	issuer, err := NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}

	token, err := issuer.Issue("acct-1", port.TokenPurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.AccountID != "acct-1" {
		t.Fatalf("unexpected account id %q", claims.AccountID)
	}
	if claims.Purpose != port.TokenPurposeAccess {
		t.Fatalf("unexpected purpose %q", claims.Purpose)
	}
}

func TestJWTExpiry(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := start

	issuer, err := NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	issuer.WithClock(func() time.Time { return clock })

	token, err := issuer.Issue("acct-1", port.TokenPurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock = start.Add(59 * time.Minute)
	if _, err := issuer.Parse(token); err != nil {
		t.Fatalf("expected token to be valid before expiry, got %v", err)
	}

	clock = start.Add(61 * time.Minute)
	if _, err := issuer.Parse(token); !errors.Is(err, port.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTResetTokenCarriesPurposeAndShortTTL(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := start

	issuer, err := NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	issuer.WithClock(func() time.Time { return clock })

	token, err := issuer.Issue("acct-1", port.TokenPurposePasswordReset, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.Purpose != port.TokenPurposePasswordReset {
		t.Fatalf("unexpected purpose %q", claims.Purpose)
	}

	clock = start.Add(16 * time.Minute)
	if _, err := issuer.Parse(token); !errors.Is(err, port.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired after 15 minutes, got %v", err)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	signer, err := NewJWTIssuer("secret-a", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}
	verifier, err := NewJWTIssuer("secret-b", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}

	token, err := signer.Issue("acct-1", port.TokenPurposeAccess, time.Hour)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Parse(token); !errors.Is(err, port.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	issuer, err := NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build issuer: %v", err)
	}

	if _, err := issuer.Parse("not.a.token"); !errors.Is(err, port.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewJWTIssuerRequiresSecret(t *testing.T) {
	if _, err := NewJWTIssuer("", "pollination-api"); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
