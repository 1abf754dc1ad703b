package ratelimiter

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"anoa.com/voteledger/pkg/apperror"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redis"
)

var testRedisURL string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
		os.Exit(1)
	}

	testRedisURL, err = container.ConnectionString(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func setupClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	opts, err := goredis.ParseURL(testRedisURL)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	require.NoError(t, client.FlushAll(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLimiter_AcquireTwiceIsLimited(t *testing.T) {
	ctx := context.Background()
	limiter := NewRedisLimiter(setupClient(t))
	userID := uuid.New()

	require.NoError(t, limiter.Acquire(ctx, userID, ScopeComment, time.Minute))

	err := limiter.Acquire(ctx, userID, ScopeComment, time.Minute)
	var rlErr *RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)
	assert.Greater(t, rlErr.RetryAfter, time.Duration(0))

	// Other scopes and users are independent.
	assert.NoError(t, limiter.Acquire(ctx, userID, ScopeView, time.Minute))
	assert.NoError(t, limiter.Acquire(ctx, uuid.New(), ScopeComment, time.Minute))
}

func TestRedisLimiter_ReleaseUnlocks(t *testing.T) {
	ctx := context.Background()
	limiter := NewRedisLimiter(setupClient(t))
	userID := uuid.New()

	require.NoError(t, limiter.Acquire(ctx, userID, ScopeComment, time.Minute))
	require.NoError(t, limiter.Release(ctx, userID, ScopeComment))
	assert.NoError(t, limiter.Acquire(ctx, userID, ScopeComment, time.Minute))
}

func TestRedisLimiter_NilClientAllows(t *testing.T) {
	limiter := NewRedisLimiter(nil)
	userID := uuid.New()

	assert.NoError(t, limiter.Acquire(context.Background(), userID, ScopeComment, time.Minute))
	assert.NoError(t, limiter.Acquire(context.Background(), userID, ScopeComment, time.Minute))
	assert.NoError(t, limiter.Release(context.Background(), userID, ScopeComment))
}
