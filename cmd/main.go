package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yield-service/yield_service/internal/api/routes"
	"github.com/yield-service/yield_service/internal/infrastructure/cache"
	"github.com/yield-service/yield_service/internal/infrastructure/config"
	"github.com/yield-service/yield_service/internal/infrastructure/database"
	"github.com/yield-service/yield_service/internal/infrastructure/di"
	"github.com/yield-service/yield_service/pkg/graceful"
	"github.com/yield-service/yield_service/pkg/logger"
	"github.com/yield-service/yield_service/pkg/secrets"
	"github.com/yield-service/yield_service/pkg/tracing"
)

// @title Yield Service API
// @version 1.0
// @description Yield pool catalogue and token flow analytics API

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = log.Sync() }()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     cfg.Environment == "development",
	}
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}
	if cfg.Tracing.Enabled {
		log.Info("OpenTelemetry tracing initialized", "collector_url", tracingConfig.CollectorURL)
	}

	// Resolve upstream API keys not supplied through the environment
	secretsProvider, err := di.NewSecretsProvider(context.Background(), cfg.Secrets)
	if err != nil {
		log.Fatal("Failed to initialize secrets provider", "error", err)
	}
	if err := di.ResolveUpstreamKeys(context.Background(), cfg, secrets.NewManager(secretsProvider), log.Zap()); err != nil {
		log.Fatal("Failed to resolve upstream API keys", "error", err)
	}

	// Initialize database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		log.Info("Database migrations applied", "path", cfg.Database.MigrationsPath)
	}

	// Redis is optional; without it there is no transfer cache or per-route limiter
	var redisClient cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(&cfg.Redis, log.Zap().Named("redis"))
		if err != nil {
			log.Warn("Redis unavailable, continuing without cache", "error", err)
			redisClient = nil
		}
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, redisClient, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	shutdown := graceful.NewShutdownManager(server, shutdownTimeout, log)

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	go database.ReportPoolStats(bgCtx, db, 30*time.Second, log.Zap())
	shutdown.Register(graceful.ShutdownFunc(func(time.Duration) error {
		cancelBackground()
		return nil
	}))

	if container.CacheWarmer != nil {
		if err := container.CacheWarmer.Start(); err != nil {
			log.Fatal("Failed to start transfer cache warmer", "error", err)
		}
		shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return container.CacheWarmer.Stop(ctx)
		}))
	}

	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tracingShutdown(ctx)
	}))

	if redisClient != nil {
		shutdown.RegisterCloser("redis", redisClient)
	}
	shutdown.RegisterCloser("database", db)

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"read_timeout", cfg.Server.ReadTimeout,
			"write_timeout", cfg.Server.WriteTimeout,
		)

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	shutdown.WaitForShutdown()
	log.Info("Server exited gracefully")
}
