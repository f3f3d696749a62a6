package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/infra/logger"
	"github.com/florafleet/pollination-api/internal/infra/security"
	"github.com/florafleet/pollination-api/internal/repository"
)

var (
	// ErrDuplicateAccount indicates the email is already registered.
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrInvalidCredentials covers both unknown email and wrong
	// password, deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound indicates the referenced account is gone.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPasswordPolicyViolation indicates the password failed policy.
	ErrPasswordPolicyViolation = errors.New("password does not meet policy requirements")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidAccessToken indicates the bearer token failed verification.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the bearer token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

const (
	defaultAccessTokenTTL = time.Hour
	defaultResetTokenTTL  = 15 * time.Minute
)

// CredentialService owns account lifecycle and token issuance. Hashing
// and signing are injected capabilities; the service never touches raw
// key material.
type CredentialService struct {
	accounts  port.AccountRepository
	hasher    port.PasswordHasher
	tokens    port.TokenIssuer
	events    port.EventPublisher
	validator *security.PasswordValidator
	accessTTL time.Duration
	resetTTL  time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// CredentialServiceOption customizes construction.
type CredentialServiceOption func(*CredentialService)

// WithTokenTTLs overrides the access and reset token lifetimes.
func WithTokenTTLs(access, reset time.Duration) CredentialServiceOption {
	return func(s *CredentialService) {
		if access > 0 {
			s.accessTTL = access
		}
		if reset > 0 {
			s.resetTTL = reset
		}
	}
}

// WithPasswordValidator overrides the default password policy.
func WithPasswordValidator(v *security.PasswordValidator) CredentialServiceOption {
	return func(s *CredentialService) {
		if v != nil {
			s.validator = v
		}
	}
}

// WithEventPublisher attaches a domain event publisher.
func WithEventPublisher(p port.EventPublisher) CredentialServiceOption {
	return func(s *CredentialService) {
		s.events = p
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) CredentialServiceOption {
	return func(s *CredentialService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewCredentialService wires the credential service.
func NewCredentialService(accounts port.AccountRepository, hasher port.PasswordHasher, tokens port.TokenIssuer, log *zap.Logger, opts ...CredentialServiceOption) *CredentialService {
	if log == nil {
		log = zap.NewNop()
	}

	s := &CredentialService{
		accounts:  accounts,
		hasher:    hasher,
		tokens:    tokens,
		validator: security.DefaultPasswordValidator(),
		accessTTL: defaultAccessTokenTTL,
		resetTTL:  defaultResetTokenTTL,
		logger:    log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthResult carries a freshly issued access token with its account.
type AuthResult struct {
	Token   string
	Account domain.Account
}

// ResetInitiation carries the outcome of a password reset request. The
// token is handed to an out-of-band delivery collaborator; whether it
// also appears in the HTTP response is a transport decision.
type ResetInitiation struct {
	Token     string
	RequestID string
	ExpiresAt time.Time
}

// Register creates an account and signs it in. Email uniqueness is
// enforced by the storage layer, so concurrent registrations for the
// same email resolve to exactly one winner.
func (s *CredentialService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if username == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}

	if err := s.validator.Validate(password); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPasswordPolicyViolation, err.Error())
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID, port.TokenPurposeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.publishRegistered(ctx, account)

	return &AuthResult{Token: token, Account: account.Sanitized()}, nil
}

// Login verifies the credentials and issues an access token. Unknown
// email and wrong password fail identically.
func (s *CredentialService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID, port.TokenPurposeAccess, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &AuthResult{Token: token, Account: account.Sanitized()}, nil
}

// GetAccount fetches the account for an authenticated caller.
func (s *CredentialService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}

// UpdateProfile applies a partial username/email update. A new email
// is re-checked against the unique index, so claiming another
// account's address fails with ErrDuplicateAccount.
func (s *CredentialService) UpdateProfile(ctx context.Context, id string, update port.AccountUpdate) (*domain.Account, error) {
	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: username must not be empty", ErrValidation)
		}
		update.Username = &trimmed
	}
	if update.Email != nil {
		trimmed := strings.TrimSpace(*update.Email)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: email must not be empty", ErrValidation)
		}
		update.Email = &trimmed
	}

	account, err := s.accounts.UpdateProfile(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrAccountNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	sanitized := account.Sanitized()
	return &sanitized, nil
}

// ChangePassword verifies the current password before storing a new
// hash. A failed verification leaves the stored hash untouched.
func (s *CredentialService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %s", ErrPasswordPolicyViolation, err.Error())
	}

	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.ID)
	return nil
}

// RequestPasswordReset issues a short-lived single-purpose reset token
// for the account behind the email.
func (s *CredentialService) RequestPasswordReset(ctx context.Context, email string) (*ResetInitiation, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	token, err := s.tokens.Issue(account.ID, port.TokenPurposePasswordReset, s.resetTTL)
	if err != nil {
		return nil, fmt.Errorf("issue reset token: %w", err)
	}

	initiation := &ResetInitiation{
		Token:     token,
		RequestID: uuid.NewString(),
		ExpiresAt: s.now().UTC().Add(s.resetTTL),
	}

	s.publishResetRequested(ctx, account, initiation)
	return initiation, nil
}

// ParseAccessToken verifies a bearer token and rejects tokens minted
// for another purpose.
func (s *CredentialService) ParseAccessToken(token string) (*port.TokenClaims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, port.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}
	if claims.Purpose != "" && claims.Purpose != port.TokenPurposeAccess {
		return nil, ErrInvalidAccessToken
	}
	return claims, nil
}

func (s *CredentialService) publishRegistered(ctx context.Context, account domain.Account) {
	if s.events == nil {
		return
	}
	event := domain.AccountRegisteredEvent{
		EventID:      uuid.NewString(),
		AccountID:    account.ID,
		Username:     account.Username,
		Email:        account.Email,
		RegisteredAt: account.CreatedAt,
	}
	if err := s.events.PublishAccountRegistered(ctx, event); err != nil {
		s.logger.Warn("Failed to publish account registered event",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}

func (s *CredentialService) publishPasswordChanged(ctx context.Context, accountID string) {
	if s.events == nil {
		return
	}
	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		AccountID: accountID,
		ChangedAt: s.now().UTC(),
	}
	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("Failed to publish password changed event",
			zap.String("account_id", accountID),
			zap.Error(err),
		)
	}
}

func (s *CredentialService) publishResetRequested(ctx context.Context, account *domain.Account, initiation *ResetInitiation) {
	if s.events == nil {
		return
	}
	event := domain.PasswordResetRequestedEvent{
		EventID:     uuid.NewString(),
		AccountID:   account.ID,
		RequestID:   initiation.RequestID,
		MaskedEmail: logger.MaskEmail(account.Email),
		RequestedAt: s.now().UTC(),
		ExpiresAt:   initiation.ExpiresAt,
	}
	if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
		s.logger.Warn("Failed to publish password reset requested event",
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
	}
}
