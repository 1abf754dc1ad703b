package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"anoa.com/voteledger/internal/config"
	"anoa.com/voteledger/internal/middleware"
	"anoa.com/voteledger/internal/scheduler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/meilisearch/meilisearch-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	accountHttp "anoa.com/voteledger/internal/modules/account/delivery/http"
	accountRepo "anoa.com/voteledger/internal/modules/account/repository"
	accountService "anoa.com/voteledger/internal/modules/account/service"

	activityHttp "anoa.com/voteledger/internal/modules/activity/delivery/http"
	activityService "anoa.com/voteledger/internal/modules/activity/service"

	commentHttp "anoa.com/voteledger/internal/modules/comment/delivery/http"
	commentRepo "anoa.com/voteledger/internal/modules/comment/repository"
	commentService "anoa.com/voteledger/internal/modules/comment/service"

	eventHttp "anoa.com/voteledger/internal/modules/event/delivery/http"
	eventRepo "anoa.com/voteledger/internal/modules/event/repository"
	eventService "anoa.com/voteledger/internal/modules/event/service"

	interactionHttp "anoa.com/voteledger/internal/modules/interaction/delivery/http"
	interactionRepo "anoa.com/voteledger/internal/modules/interaction/repository"
	interactionService "anoa.com/voteledger/internal/modules/interaction/service"

	"anoa.com/voteledger/internal/modules/realtime/bus"
	realtimeHttp "anoa.com/voteledger/internal/modules/realtime/delivery/http"
	"anoa.com/voteledger/internal/modules/realtime/hub"
	realtimeService "anoa.com/voteledger/internal/modules/realtime/service"

	searchService "anoa.com/voteledger/internal/modules/search/service"

	voteHttp "anoa.com/voteledger/internal/modules/vote/delivery/http"
	voteRepo "anoa.com/voteledger/internal/modules/vote/repository"
	voteService "anoa.com/voteledger/internal/modules/vote/service"

	"anoa.com/voteledger/pkg/database"
	"anoa.com/voteledger/pkg/ratelimiter"
)

const jobTimeout = 5 * time.Minute

type Server struct {
	cfg         *config.Config
	engine      *gin.Engine
	db          *gorm.DB
	redisClient redis.UniversalClient

	bus       bus.Bus
	hub       *hub.Hub
	relay     *realtimeService.Relay
	scheduler *scheduler.Scheduler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient redis.UniversalClient, logger *slog.Logger) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := clockwork.NewRealClock()

	changeBus, err := newBus(cfg, redisClient)
	if err != nil {
		return nil, err
	}
	h := hub.New()
	relay := realtimeService.NewRelay(changeBus, h)
	notifier := realtimeService.NewNotifier(changeBus, clock, realtimeService.DefaultNotifierOptions)

	limiter := ratelimiter.NewRedisLimiter(redisClient)
	transactor := database.NewTransactor(db)

	// Repositories
	accountRepository := accountRepo.NewAccountRepository(db)
	eventRepository := eventRepo.NewEventRepository(db)
	voteRepository := voteRepo.NewVoteRepository(db)
	interactionRepository := interactionRepo.NewInteractionRepository(db)
	commentRepository := commentRepo.NewCommentRepository(db)

	// Services
	accountSvc := accountService.NewAccountService(accountRepository, cfg.DefaultPoints)
	eventSvc := eventService.NewEventService(eventRepository, newEventIndex(cfg), notifier, clock)
	interactionSvc := interactionService.NewInteractionService(interactionRepository, eventRepository, limiter, notifier, cfg.ViewDedupeWindow)
	voteSvc := voteService.NewVoteService(transactor, voteRepository, eventRepository, accountSvc, interactionSvc, notifier, clock)
	commentSvc := commentService.NewCommentService(commentRepository, eventRepository, interactionSvc, limiter, notifier, cfg.RateLimitComment)
	activitySvc := activityService.NewActivityService(voteRepository, commentRepository, eventRepository)

	jobs := scheduler.New(jobTimeout)
	if err := jobs.Register(interactionService.NewDecayJob(interactionRepository, cfg.ScoreDecayPercent, cfg.ScoreDecaySchedule)); err != nil {
		return nil, fmt.Errorf("failed to register score decay job: %w", err)
	}

	// Handlers
	accountHandler := accountHttp.NewAccountHandler(accountSvc)
	eventHandler := eventHttp.NewEventHandler(eventSvc)
	voteHandler := voteHttp.NewVoteHandler(voteSvc)
	interactionHandler := interactionHttp.NewInteractionHandler(interactionSvc)
	commentHandler := commentHttp.NewCommentHandler(commentSvc)
	activityHandler := activityHttp.NewActivityHandler(activitySvc)
	realtimeHandler := realtimeHttp.NewRealtimeHandler(h, realtimeHttp.Options{
		MaxConnections: cfg.MaxWebSocketConnections,
		UpgradeRate:    cfg.WebSocketUpgradeRate,
		UpgradeBurst:   cfg.WebSocketUpgradeBurst,
		AllowedOrigins: cfg.Origins(),
	})

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)

	router := gin.New()
	setupCORS(router, cfg.Origins())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger, "/health", "/metrics"))

	router.GET("/health", healthCheck(db, redisClient))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		public := api.Group("")
		public.Use(authMiddleware.OptionalAuth())
		{
			public.GET("/events", eventHandler.ListEvents)
			public.GET("/events/search", eventHandler.SearchEvents)
			public.GET("/events/:event_id", eventHandler.GetEvent)
			public.GET("/events/:event_id/statistics", voteHandler.GetStatistics)
			public.GET("/events/:event_id/comments", commentHandler.ListComments)
			public.GET("/activity", activityHandler.GetFeed)
			public.GET("/ws", realtimeHandler.Subscribe)
		}

		protected := api.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			protected.GET("/accounts/me", accountHandler.GetMyAccount)
			protected.GET("/accounts/me/history", accountHandler.GetMyHistory)

			protected.POST("/events/:event_id/votes", voteHandler.CastVote)
			protected.GET("/events/:event_id/votes/me", voteHandler.GetMyVote)
			protected.GET("/votes/me", voteHandler.GetMyVotes)

			protected.POST("/events/:event_id/interactions", interactionHandler.RecordInteraction)

			protected.POST("/events/:event_id/comments", commentHandler.PostComment)
			protected.POST("/comments/:comment_id/like", commentHandler.ToggleLike)

			admin := protected.Group("/admin")
			admin.Use(authMiddleware.RequireAdmin())
			{
				admin.POST("/events", eventHandler.CreateEvent)
				admin.PATCH("/events/:event_id/active", eventHandler.SetActive)
				admin.POST("/events/:event_id/tallies/rebuild", voteHandler.RebuildTallies)
				admin.POST("/accounts/:user_id/credit", accountHandler.CreditAccount)
			}
		}
	}

	return &Server{
		cfg:         cfg,
		engine:      router,
		db:          db,
		redisClient: redisClient,
		bus:         changeBus,
		hub:         h,
		relay:       relay,
		scheduler:   jobs,
	}, nil
}

func newBus(cfg *config.Config, redisClient redis.UniversalClient) (bus.Bus, error) {
	switch cfg.NotifierBackend {
	case config.BackendKafka:
		return bus.NewKafkaBus(bus.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic}), nil
	case config.BackendRedis:
		if redisClient == nil {
			return nil, errors.New("redis notifier backend requires a redis client")
		}
		return bus.NewRedisBus(redisClient), nil
	default:
		return nil, fmt.Errorf("unknown notifier backend %q", cfg.NotifierBackend)
	}
}

func newEventIndex(cfg *config.Config) searchService.EventIndex {
	host := cfg.MeiliSearchHost
	if host == "" {
		slog.Info("MEILISEARCH_HOST not set, event search disabled")
		return searchService.NewNopIndex()
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}

	client := meilisearch.New(host, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return searchService.NewMeiliIndex(client)
}

func setupCORS(router *gin.Engine, origins []string) {
	corsConfig := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))
}

func healthCheck(db *gorm.DB, redisClient redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		healthy := true

		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unavailable"
			healthy = false
		}
		if redisClient == nil {
			status["redis"] = "disabled"
		} else if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
			healthy = false
		}

		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": status})
	}
}

// Handler exposes the router for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start launches the hub, the bus relay and the scheduler. They stop when
// Shutdown is called.
func (s *Server) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("change relay stopped", "error", err)
		}
	}()

	s.scheduler.Start()
}

// Shutdown stops background work and closes the bus.
func (s *Server) Shutdown(ctx context.Context) error {
	s.scheduler.Stop(ctx)
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("timed out waiting for realtime workers")
	}

	return s.bus.Close()
}
