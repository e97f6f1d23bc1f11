package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/retailpulse/retailpulse-go/internal/api"
	"github.com/retailpulse/retailpulse-go/internal/api/handlers"
	"github.com/retailpulse/retailpulse-go/internal/cache"
	"github.com/retailpulse/retailpulse-go/internal/config"
	"github.com/retailpulse/retailpulse-go/internal/database"
	"github.com/retailpulse/retailpulse-go/internal/logging"
	"github.com/retailpulse/retailpulse-go/internal/middleware"
	"github.com/retailpulse/retailpulse-go/internal/services"
	"github.com/retailpulse/retailpulse-go/internal/telemetry"
)

const serviceName = "retailpulse-api"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; real deployments use environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger.LogStartup(serviceName, cfg.Telemetry.ServiceVersion, cfg.Server.Port)

	if err := telemetry.InitTelemetry(telemetry.TelemetryConfig{
		Enabled:        cfg.Telemetry.Enabled,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	}); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetry.Shutdown(); err != nil {
			logger.WithError(err).Warn("Telemetry shutdown failed")
		}
	}()

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redis.Close()

	repository := database.NewSalesRepository(database.NewTracedPool(db.Pool, logger))
	patternCache := cache.NewRedisPatternCache(redis.Client, patternTTL(cfg.Cache, logger), logger)

	optimizer := services.NewResourceOptimizer(services.ResourceOptimizerConfig{
		MaxWorkers: cfg.Analytics.MaxWorkers,
	}, logger)

	engine := services.NewEngine(cfg.Analytics, repository, patternCache, optimizer, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger))

	api.SetupRoutes(router,
		handlers.NewAnalyticsHandler(engine, repository, logger),
		handlers.NewRecordsHandler(repository, patternCache, logger),
		handlers.NewHealthHandler(db, redis, optimizer, cfg.Telemetry.ServiceVersion),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.LogShutdown(serviceName, sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited")
	return nil
}

// patternTTL parses the configured cache TTL, falling back to six hours on a
// missing or malformed value.
func patternTTL(cfg config.CacheConfig, logger logging.Logger) time.Duration {
	const fallback = 6 * time.Hour
	if cfg.PatternTTL == "" {
		return fallback
	}
	ttl, err := time.ParseDuration(cfg.PatternTTL)
	if err != nil || ttl <= 0 {
		logger.Warn("Invalid pattern_ttl %q, using %s", cfg.PatternTTL, fallback)
		return fallback
	}
	return ttl
}
