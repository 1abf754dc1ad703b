package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendRedis = "redis"
	BackendKafka = "kafka"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" default:"development"`
	Port           string `env:"PORT" default:"8080"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" default:"localhost"`
	DBUser      string `env:"DB_USER" default:"postgres"`
	DBPass      string `env:"DB_PASS"`
	DBName      string `env:"DB_NAME" default:"vote_ledger"`
	DBPort      string `env:"DB_PORT" default:"5432"`

	RedisURL string `env:"REDIS_URL" default:"redis://localhost:6379/0"`

	JWTSecret string `env:"JWT_SECRET"`

	NotifierBackend string   `env:"NOTIFIER_BACKEND" default:"redis"`
	KafkaBrokers    []string `env:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic      string   `env:"KAFKA_TOPIC" default:"vote-ledger.changes"`

	MeiliSearchHost string `env:"MEILISEARCH_HOST"`
	MeiliMasterKey  string `env:"MEILI_MASTER_KEY"`

	DefaultPoints      int           `env:"DEFAULT_POINTS" default:"1000"`
	RateLimitComment   time.Duration `env:"RATE_LIMIT_COMMENT" default:"0s"`
	ViewDedupeWindow   time.Duration `env:"VIEW_DEDUPE_WINDOW" default:"24h"`
	ScoreDecayPercent  int           `env:"SCORE_DECAY_PERCENT" default:"0"`
	ScoreDecaySchedule string        `env:"SCORE_DECAY_SCHEDULE" default:"@daily"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	WebSocketUpgradeRate    float64 `env:"WEBSOCKET_UPGRADE_RATE" default:"50"`
	WebSocketUpgradeBurst   int     `env:"WEBSOCKET_UPGRADE_BURST" default:"100"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"15s"`
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, &env.Options{SliceSep: ","}); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.JWTSecret = "dev-secret"
		slog.Warn("JWT_SECRET is not set, using an insecure development secret")
	}

	switch c.NotifierBackend {
	case BackendRedis:
	case BackendKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when NOTIFIER_BACKEND=kafka")
		}
	default:
		return fmt.Errorf("NOTIFIER_BACKEND must be %q or %q, got %q", BackendRedis, BackendKafka, c.NotifierBackend)
	}

	if c.DefaultPoints < 0 {
		return errors.New("DEFAULT_POINTS must not be negative")
	}
	if c.ScoreDecayPercent < 0 || c.ScoreDecayPercent >= 100 {
		return fmt.Errorf("SCORE_DECAY_PERCENT must be between 0 and 99, got %d", c.ScoreDecayPercent)
	}
	if c.MaxWebSocketConnections < 1 {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DSN prefers DATABASE_URL and falls back to the DB_* variables.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
