package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/florafleet/pollination-api/internal/core/port"
)

// RateLimitStore keeps per-identifier attempt timestamps in a Redis
// sorted set scored by nanosecond timestamps, giving an exact sliding
// window without fixed buckets.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRateLimitStore constructs a store. ttl bounds how long an idle
// identifier's set survives; it should exceed the largest window in
// use.
func NewRateLimitStore(client *redis.Client, keyPrefix string, ttl time.Duration) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *RateLimitStore) key(identifier string) string {
	if s.keyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", s.keyPrefix, identifier)
}

// RecordAttempt adds the timestamp to the identifier's window.
func (s *RateLimitStore) RecordAttempt(ctx context.Context, identifier string, at time.Time) error {
	key := s.key(identifier)
	member := redis.Z{Score: float64(at.UnixNano()), Member: at.UnixNano()}

	if err := s.client.ZAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("redis zadd: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire: %w", err)
		}
	}
	return nil
}

// CountAttempts returns how many attempts fall inside the window
// ending at the reference time.
func (s *RateLimitStore) CountAttempts(ctx context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}

	min := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	max := fmt.Sprintf("%f", float64(reference.UnixNano()))

	count, err := s.client.ZCount(ctx, s.key(identifier), min, max).Result()
	if err != nil {
		return 0, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count), nil
}

// TrimWindow drops attempts that have aged out of the window.
func (s *RateLimitStore) TrimWindow(ctx context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}

	threshold := fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano()))
	if err := s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", threshold).Err(); err != nil {
		return fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	return nil
}

// OldestAttempt returns the earliest attempt still inside the window,
// which determines when the window next frees a slot.
func (s *RateLimitStore) OldestAttempt(ctx context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}

	values, err := s.client.ZRangeByScore(ctx, s.key(identifier), &redis.ZRangeBy{
		Min:   fmt.Sprintf("%f", float64(reference.Add(-window).UnixNano())),
		Max:   fmt.Sprintf("%f", float64(reference.UnixNano())),
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("redis zrangebyscore: %w", err)
	}
	if len(values) == 0 {
		return time.Time{}, false, nil
	}

	ts, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse timestamp: %w", err)
	}
	return time.Unix(0, ts), true, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
