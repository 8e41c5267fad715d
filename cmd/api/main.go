// Package main is the entrypoint for the swyw API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/swyw/swyw/internal/changefeed"
	"github.com/swyw/swyw/internal/config"
	"github.com/swyw/swyw/internal/handler"
	"github.com/swyw/swyw/internal/logging"
	"github.com/swyw/swyw/internal/metrics"
	"github.com/swyw/swyw/internal/middleware"
	"github.com/swyw/swyw/internal/server"
	"github.com/swyw/swyw/internal/service"
	"github.com/swyw/swyw/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)

	// The store lives as long as the process; nothing is persisted.
	entityStore := store.New()
	if cfg.SeedDemoData {
		store.SeedDemo(entityStore)
		logger.Info("seeded demo data")
	}

	// Optional change feed
	var (
		publisher      changefeed.Publisher = changefeed.NewNoop()
		redisClient    *changefeed.Client
		redisPublisher *changefeed.RedisPublisher
	)
	if cfg.ChangeFeedEnabled() {
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		redisClient, err = changefeed.Connect(connectCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", err.Error()),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		redisPublisher = changefeed.NewRedisPublisher(redisClient.Redis(), logger)
		publisher = redisPublisher
		logger.Info("change feed enabled", "stream", changefeed.StreamKey)
	}

	// Initialize services
	recorder := metrics.NewInMemory()
	entityService := service.NewEntityService(entityStore, recorder, publisher)

	r := setupRouter(cfg, entityService, recorder, redisClient, logger)

	srv := server.New(r, server.Config{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run in reverse order: queued change events are written before
	// the Redis client is closed.
	if redisClient != nil {
		srv.OnShutdown("redis", func(context.Context) error {
			return redisClient.Close()
		})
		srv.OnShutdown("changefeed", redisPublisher.Close)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"base_path", cfg.APIBasePath,
		"env", cfg.AppEnv,
		"dump_endpoint", cfg.EnableDumpEndpoint,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Config,
	entityService *service.EntityService,
	recorder *metrics.InMemoryRecorder,
	redisClient *changefeed.Client,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	h := handler.New(cfg.APIBasePath)

	checks := map[string]handler.HealthChecker{"redis": nil}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	healthHandler := handler.NewHealthHandler(checks)
	metricsHandler := handler.NewMetricsHandler(recorder, entityService)
	entityHandler := handler.NewEntityHandler(entityService, logger, cfg.EnableDumpEndpoint)

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	entityRoutes := func(r chi.Router) {
		r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))
		entityHandler.Routes(r)
	}
	if cfg.APIBasePath == "" {
		r.Group(entityRoutes)
	} else {
		r.Get("/", h.Info)
		r.Route(cfg.APIBasePath, entityRoutes)
	}

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

// redactURL strips credentials from a connection URL before logging it.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}
