package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoa.com/voteledger/internal/bootstrap"
	"anoa.com/voteledger/internal/config"
	"anoa.com/voteledger/internal/server"
	"anoa.com/voteledger/pkg/database"
	"anoa.com/voteledger/pkg/logger"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DSN(), database.DefaultOptions)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := bootstrap.Migrate(db); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	if !cfg.IsProduction() {
		if err := bootstrap.SeedDemoEvent(db); err != nil {
			log.Error("failed to seed demo event", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := connectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	srv, err := server.NewServer(cfg, db, redisClient, log)
	if err != nil {
		log.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", httpServer.Addr, "env", cfg.AppEnv, "notifier", cfg.NotifierBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server exited with error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("background shutdown failed", "error", err)
	}
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
