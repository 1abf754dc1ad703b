// Package testutil starts throwaway Postgres and Redis containers for
// integration tests. Tests using it are skipped with -short.
package testutil

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"anoa.com/voteledger/internal/bootstrap"
	"anoa.com/voteledger/pkg/database"
	"anoa.com/voteledger/pkg/retry"
	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const truncateAll = `TRUNCATE accounts, point_logs, vote_events, votes, vote_tallies,
	vote_interactions, vote_comments, comment_likes`

var (
	sharedDB    *gorm.DB
	sharedRedis *goredis.Client
)

type Options struct {
	Postgres bool
	Redis    bool
}

// Main is meant to be called from TestMain.
func Main(m *testing.M, opts Options) int {
	flag.Parse()
	if testing.Short() {
		return m.Run()
	}

	ctx := context.Background()
	var cleanups []func()
	defer func() {
		for _, fn := range cleanups {
			fn()
		}
	}()

	if opts.Postgres {
		container, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("ledger_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
			return 1
		}
		cleanups = append(cleanups, func() { _ = container.Terminate(ctx) })

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to get connection string: %v\n", err)
			return 1
		}

		opts := database.DefaultOptions
		opts.LogLevel = logger.Silent
		opts.Retry = retry.Policy{MaxAttempts: 10, InitialBackoff: 200 * time.Millisecond}
		sharedDB, err = database.Open(ctx, dsn, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
			return 1
		}
		if err := bootstrap.Migrate(sharedDB); err != nil {
			fmt.Fprintf(os.Stderr, "failed to migrate test database: %v\n", err)
			return 1
		}
	}

	if opts.Redis {
		container, err := redis.Run(ctx, "redis:7-alpine")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start redis container: %v\n", err)
			return 1
		}
		cleanups = append(cleanups, func() { _ = container.Terminate(ctx) })

		url, err := container.ConnectionString(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to get redis endpoint: %v\n", err)
			return 1
		}
		redisOpts, err := goredis.ParseURL(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid redis url: %v\n", err)
			return 1
		}
		sharedRedis = goredis.NewClient(redisOpts)
		cleanups = append(cleanups, func() { _ = sharedRedis.Close() })
	}

	return m.Run()
}

// DB returns the shared database and truncates every ledger table after the test.
func DB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if sharedDB == nil {
		t.Fatal("postgres was not started, pass Options{Postgres: true} to testutil.Main")
	}

	t.Cleanup(func() {
		if err := sharedDB.Exec(truncateAll).Error; err != nil {
			t.Logf("failed to truncate tables: %v", err)
		}
	})
	return sharedDB
}

// Redis returns the shared client after flushing it.
func Redis(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if sharedRedis == nil {
		t.Fatal("redis was not started, pass Options{Redis: true} to testutil.Main")
	}

	if err := sharedRedis.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
	return sharedRedis
}
