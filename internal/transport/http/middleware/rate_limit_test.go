package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	trimErr   error
	count     int
	countErr  error
	oldest    time.Time
	hasOldest bool
	oldestErr error
	recordErr error

	recordCalls int
}

func (f *fakeRateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	return f.trimErr
}

func (f *fakeRateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	return f.count, f.countErr
}

func (f *fakeRateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	f.recordCalls++
	return f.recordErr
}

func (f *fakeRateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	return f.oldest, f.hasOldest, f.oldestErr
}

func newLimitedRouter(t *testing.T, store *fakeRateLimitStore, now time.Time, limit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	limiter := NewRateLimiter(store, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	router := gin.New()
	router.Use(limiter.RateLimit(RateLimitRule{
		Name:   "login",
		Limit:  limit,
		Window: time.Minute,
		Identifier: func(c *gin.Context) (string, bool) {
			return "198.51.100.7", true
		},
	}))
	router.POST("/login", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiterAllowsWhenBelowLimit(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	oldest := now.Add(-20 * time.Second)

	store := &fakeRateLimitStore{
		count:     1,
		oldest:    oldest,
		hasOldest: true,
	}

	router := newLimitedRouter(t, store, now, 5)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.recordCalls != 1 {
		t.Fatalf("expected record attempt to be called once, got %d", store.recordCalls)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "3" {
		t.Fatalf("expected remaining header 3, got %q", got)
	}

	expectedReset := oldest.Add(time.Minute).Unix()
	if got := rr.Header().Get("X-RateLimit-Reset"); got != strconv.FormatInt(expectedReset, 10) {
		t.Fatalf("expected reset header %d, got %q", expectedReset, got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("expected no retry-after header, got %q", got)
	}
}

func TestRateLimiterBlocksWhenLimitExceeded(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	oldest := now.Add(-45 * time.Second)

	store := &fakeRateLimitStore{
		count:     3,
		oldest:    oldest,
		hasOldest: true,
	}

	router := newLimitedRouter(t, store, now, 3)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record attempt when blocked, got %d", store.recordCalls)
	}
	if got := rr.Header().Get("Retry-After"); got != "15" {
		t.Fatalf("expected retry-after 15, got %q", got)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rr.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if problem.Status != http.StatusTooManyRequests {
		t.Fatalf("unexpected problem status %d", problem.Status)
	}
	if problem.RetryAfter != 15 {
		t.Fatalf("expected problem retry_after 15, got %d", problem.RetryAfter)
	}
}

func TestRateLimiterFailsOpenOnStoreError(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	store := &fakeRateLimitStore{
		trimErr: errors.New("redis down"),
	}

	router := newLimitedRouter(t, store, now, 5)

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when failing open, got %d", rr.Code)
	}
	if store.recordCalls != 0 {
		t.Fatalf("expected no record attempt on failure, got %d", store.recordCalls)
	}
}
