package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"anoa.com/voteledger/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	ScopeComment = "comment"
	ScopeView    = "view"
)

// RateLimitError is returned when a scope is still locked for a user.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func (e *RateLimitError) Unwrap() error {
	return apperror.ErrRateLimitExceeded
}

// Limiter grants one action per user and scope within a window.
type Limiter interface {
	// Acquire returns a *RateLimitError if the scope is still locked.
	Acquire(ctx context.Context, userID uuid.UUID, scope string, window time.Duration) error
	// Release drops the lock, used to roll back when the guarded action failed.
	Release(ctx context.Context, userID uuid.UUID, scope string) error
}

type redisLimiter struct {
	rdb redis.UniversalClient
}

// NewRedisLimiter returns a Limiter backed by SET NX keys. A nil client allows everything.
func NewRedisLimiter(rdb redis.UniversalClient) Limiter {
	return &redisLimiter{rdb: rdb}
}

func key(userID uuid.UUID, scope string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), scope)
}

func (l *redisLimiter) Acquire(ctx context.Context, userID uuid.UUID, scope string, window time.Duration) error {
	if l.rdb == nil || window <= 0 {
		return nil
	}

	wasSet, err := l.rdb.SetNX(ctx, key(userID, scope), "locked", window).Result()
	if err != nil {
		return fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	if wasSet {
		return nil
	}

	ttl, err := l.rdb.TTL(ctx, key(userID, scope)).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	return &RateLimitError{
		Message:    fmt.Sprintf("please wait %d seconds before trying again", int(ttl.Seconds())+1),
		RetryAfter: ttl,
	}
}

func (l *redisLimiter) Release(ctx context.Context, userID uuid.UUID, scope string) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.Del(ctx, key(userID, scope)).Err()
}
