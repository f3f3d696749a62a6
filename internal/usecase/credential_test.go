package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/florafleet/pollination-api/internal/core/domain"
	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/infra/security"
	"github.com/florafleet/pollination-api/internal/repository"
)

// memAccountRepository enforces email uniqueness under a mutex, the
// same guarantee the unique index provides in MongoDB.
type memAccountRepository struct {
	mu       sync.Mutex
	byID     map[string]domain.Account
	emailIdx map[string]string
}

func newMemAccountRepository() *memAccountRepository {
	return &memAccountRepository{
		byID:     make(map[string]domain.Account),
		emailIdx: make(map[string]string),
	}
}

func (r *memAccountRepository) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.emailIdx[account.Email]; exists {
		return repository.ErrDuplicate
	}
	r.byID[account.ID] = account
	r.emailIdx[account.Email] = account.ID
	return nil
}

func (r *memAccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &account, nil
}

func (r *memAccountRepository) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.emailIdx[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	account := r.byID[id]
	return &account, nil
}

func (r *memAccountRepository) UpdateProfile(_ context.Context, id string, update port.AccountUpdate) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}

	if update.Email != nil && *update.Email != account.Email {
		if _, taken := r.emailIdx[*update.Email]; taken {
			return nil, repository.ErrDuplicate
		}
		delete(r.emailIdx, account.Email)
		account.Email = *update.Email
		r.emailIdx[account.Email] = id
	}
	if update.Username != nil {
		account.Username = *update.Username
	}

	r.byID[id] = account
	return &account, nil
}

func (r *memAccountRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.PasswordHash = passwordHash
	r.byID[id] = account
	return nil
}

func (r *memAccountRepository) storedHash(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].PasswordHash
}

func newTestCredentialService(t *testing.T, repo *memAccountRepository, opts ...CredentialServiceOption) *CredentialService {
	t.Helper()

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("failed to build hasher: %v", err)
	}

	tokens, err := security.NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}

	return NewCredentialService(repo, hasher, tokens, zaptest.NewLogger(t), opts...)
}

const strongPassword = "Tr4il-Blazing-Orchid!"

func TestRegisterReturnsTokenAndSanitizedAccount(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	result, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected access token")
	}
	if result.Account.PasswordHash != "" {
		t.Fatal("expected sanitized account without password hash")
	}
	if result.Account.Email != "beatrix@example.com" {
		t.Fatalf("unexpected email %q", result.Account.Email)
	}

	claims, err := svc.ParseAccessToken(result.Token)
	if err != nil {
		t.Fatalf("expected issued token to parse, got %v", err)
	}
	if claims.AccountID != result.Account.ID {
		t.Fatalf("token subject %q does not match account %q", claims.AccountID, result.Account.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	if _, err := svc.Register(context.Background(), "first", "taken@example.com", strongPassword); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err := svc.Register(context.Background(), "second", "taken@example.com", strongPassword)
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestRegisterConcurrentSameEmailSingleWinner(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	const workers = 8
	results := make(chan error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(context.Background(), "racer", "race@example.com", strongPassword)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var winners, duplicates int
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrDuplicateAccount):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if duplicates != workers-1 {
		t.Fatalf("expected %d duplicates, got %d", workers-1, duplicates)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	_, err := svc.Register(context.Background(), "weak", "weak@example.com", "password")
	if !errors.Is(err, ErrPasswordPolicyViolation) {
		t.Fatalf("expected ErrPasswordPolicyViolation, got %v", err)
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	_, err := svc.Register(context.Background(), "", "missing@example.com", strongPassword)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	if _, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, unknownErr := svc.Login(context.Background(), "nobody@example.com", strongPassword)
	_, wrongErr := svc.Login(context.Background(), "beatrix@example.com", "Wrong-Password-99!")

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("expected identical errors, got %q and %q", unknownErr, wrongErr)
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	registered, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	result, err := svc.Login(context.Background(), "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if result.Account.ID != registered.Account.ID {
		t.Fatalf("expected same account, got %q and %q", result.Account.ID, registered.Account.ID)
	}
	if result.Account.PasswordHash != "" {
		t.Fatal("expected sanitized account without password hash")
	}
}

func TestChangePasswordWrongCurrentLeavesHashUntouched(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	registered, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	before := repo.storedHash(registered.Account.ID)

	err = svc.ChangePassword(context.Background(), registered.Account.ID, "Wrong-Current-99!", "Another-Strong-Pass-42!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if repo.storedHash(registered.Account.ID) != before {
		t.Fatal("expected stored hash to be unchanged after failed verification")
	}
}

func TestChangePasswordRotatesCredential(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	registered, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	const newPassword = "Another-Strong-Pass-42!"
	if err := svc.ChangePassword(context.Background(), registered.Account.ID, strongPassword, newPassword); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), "beatrix@example.com", strongPassword); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "beatrix@example.com", newPassword); err != nil {
		t.Fatalf("expected new password to log in, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	_, err := svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestResetTokenCannotAuthenticate(t *testing.T) {
	repo := newMemAccountRepository()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestCredentialService(t, repo, WithClock(func() time.Time { return start }))

	if _, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	initiation, err := svc.RequestPasswordReset(context.Background(), "beatrix@example.com")
	if err != nil {
		t.Fatalf("request reset failed: %v", err)
	}
	if initiation.Token == "" || initiation.RequestID == "" {
		t.Fatal("expected token and request id")
	}
	if got := initiation.ExpiresAt; !got.Equal(start.Add(15 * time.Minute)) {
		t.Fatalf("expected reset token to expire after 15 minutes, got %v", got)
	}

	if _, err := svc.ParseAccessToken(initiation.Token); !errors.Is(err, ErrInvalidAccessToken) {
		t.Fatalf("expected reset token to be rejected as access token, got %v", err)
	}
}

func TestUpdateProfileDuplicateEmail(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	if _, err := svc.Register(context.Background(), "first", "first@example.com", strongPassword); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	second, err := svc.Register(context.Background(), "second", "second@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	taken := "first@example.com"
	_, err = svc.UpdateProfile(context.Background(), second.Account.ID, port.AccountUpdate{Email: &taken})
	if !errors.Is(err, ErrDuplicateAccount) {
		t.Fatalf("expected ErrDuplicateAccount, got %v", err)
	}
}

func TestUpdateProfileChangesFields(t *testing.T) {
	repo := newMemAccountRepository()
	svc := newTestCredentialService(t, repo)

	registered, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	username := "bee"
	email := "bee@example.com"
	updated, err := svc.UpdateProfile(context.Background(), registered.Account.ID, port.AccountUpdate{
		Username: &username,
		Email:    &email,
	})
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if updated.Username != "bee" || updated.Email != "bee@example.com" {
		t.Fatalf("unexpected profile %q %q", updated.Username, updated.Email)
	}
	if updated.PasswordHash != "" {
		t.Fatal("expected sanitized account without password hash")
	}

	if _, err := svc.Login(context.Background(), "bee@example.com", strongPassword); err != nil {
		t.Fatalf("expected login with new email to work, got %v", err)
	}
}

func TestExpiredAccessTokenRejected(t *testing.T) {
	repo := newMemAccountRepository()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := start

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("failed to build hasher: %v", err)
	}
	tokens, err := security.NewJWTIssuer("test-secret", "pollination-api")
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}
	tokens.WithClock(func() time.Time { return clock })

	svc := NewCredentialService(repo, hasher, tokens, zaptest.NewLogger(t))

	registered, err := svc.Register(context.Background(), "beatrix", "beatrix@example.com", strongPassword)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	clock = start.Add(61 * time.Minute)
	if _, err := svc.ParseAccessToken(registered.Token); !errors.Is(err, ErrExpiredAccessToken) {
		t.Fatalf("expected ErrExpiredAccessToken, got %v", err)
	}
}
