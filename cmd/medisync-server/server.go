package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/svviitzerland/Medisync/internal/config"
	"github.com/svviitzerland/Medisync/internal/domain/admin"
	"github.com/svviitzerland/Medisync/internal/domain/assistant"
	"github.com/svviitzerland/Medisync/internal/domain/billing"
	"github.com/svviitzerland/Medisync/internal/domain/directory"
	"github.com/svviitzerland/Medisync/internal/domain/pharmacy"
	"github.com/svviitzerland/Medisync/internal/domain/resource"
	"github.com/svviitzerland/Medisync/internal/domain/ticket"
	"github.com/svviitzerland/Medisync/internal/platform/auth"
	"github.com/svviitzerland/Medisync/internal/platform/db"
	"github.com/svviitzerland/Medisync/internal/platform/llm"
	"github.com/svviitzerland/Medisync/internal/platform/middleware"
	"github.com/svviitzerland/Medisync/internal/platform/outbox"
	"github.com/svviitzerland/Medisync/internal/platform/websocket"
)

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		boot := newLogger("")
		boot.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	hub := websocket.NewHub(logger)
	e := newEcho(cfg, logger)
	registerRoutes(e, cfg, pool, hub, logger)

	// Outbox relay: log, websocket and optionally Kafka.
	publishers, closePublishers := brokerPublishers(cfg, logger)
	defer closePublishers()
	publishers = append(publishers, websocket.NewOutboxPublisher(hub))
	relay := outbox.NewRelay(outbox.NewRepo(pool), db.NewTxManager(pool), logger, relayOptions(cfg), publishers...)
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("outbox relay exited")
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	cancel()
	<-relayDone
	logger.Info().Msg("server stopped")
	return nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.SecurityHeaders(!cfg.IsDev()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	return e
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.IsDev() {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Audience: cfg.JWTAudience,
	})
}

func registerRoutes(e *echo.Echo, cfg *config.Config, pool *pgxpool.Pool, hub *websocket.Hub, logger zerolog.Logger) {
	e.GET("/health", db.HealthHandler(pool, version))

	txm := db.NewTxManager(pool)
	events := outbox.NewRepo(pool)

	resourceSvc := resource.NewService(resource.NewRepoPG(pool), cfg.NurseDefaultTeams)
	pharmacySvc := pharmacy.NewService(pharmacy.NewMedicineRepoPG(pool), pharmacy.NewPrescriptionRepoPG(pool), txm, events)
	billingSvc := billing.NewService(billing.NewRepoPG(pool), txm, events)
	directorySvc := directory.NewService(directory.NewProfileRepoPG(pool), directory.NewStaffRepoPG(pool), txm)
	ticketSvc := ticket.NewService(ticket.NewRepoPG(pool), resourceSvc, pharmacySvc, billingSvc, txm, events)

	completer := llm.NewClient(llm.Config{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModelID,
		Timeout: cfg.LLMTimeout,
	}, logger)
	if cfg.AIAPIKey == "" {
		logger.Warn().Msg("AI_API_KEY is not set, decision-support calls will fail")
	}
	assistantSvc := assistant.NewService(completer, directorySvc, directorySvc, ticketSvc, pharmacySvc, assistant.NewChatRepoPG(pool), logger)
	adminSvc := admin.NewService(directorySvc, ticketSvc, billingSvc, resourceSvc)

	api := e.Group("/api/v1", authMiddleware(cfg), middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	resource.NewHandler(resourceSvc).RegisterRoutes(api)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)
	billing.NewHandler(billingSvc).RegisterRoutes(api)
	directory.NewHandler(directorySvc).RegisterRoutes(api)
	ticket.NewHandler(ticketSvc).RegisterRoutes(api)
	assistant.NewHandler(assistantSvc).RegisterRoutes(api)
	admin.NewHandler(adminSvc).RegisterRoutes(api)
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(api)
}
