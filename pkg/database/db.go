package database

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"anoa.com/voteledger/pkg/retry"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	DB   *gorm.DB
	once sync.Once
)

// Options controls the connection pool and start-up behaviour.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	Retry           retry.Policy
}

var DefaultOptions = Options{
	MaxOpenConns:    25,
	MaxIdleConns:    5,
	ConnMaxLifetime: 30 * time.Minute,
	LogLevel:        logger.Warn,
	Retry: retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
	},
}

// Connect opens the process-wide pool once. Later calls return the same handle.
func Connect(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	var err error
	once.Do(func() {
		DB, err = Open(ctx, dsn, opts)
	})
	if err != nil {
		return nil, err
	}
	if DB == nil {
		return nil, fmt.Errorf("database: previous connect attempt failed")
	}
	return DB, nil
}

// Open dials Postgres and waits for it to answer a ping, retrying transient failures.
func Open(ctx context.Context, dsn string, opts Options) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(opts.LogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)

	policy := opts.Retry
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("database not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	}

	err = retry.DoVoid(ctx, policy, retry.AlwaysRetry, func() error {
		return sqlDB.PingContext(ctx)
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
