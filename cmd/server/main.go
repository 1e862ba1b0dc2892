// Package main provides the API server entry point for the time-economy service.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/time-economy/internal/api"
	"github.com/time-economy/internal/config"
	"github.com/time-economy/internal/identity"
	"github.com/time-economy/internal/logging"
	"github.com/time-economy/internal/retry"
	"github.com/time-economy/internal/service"
	"github.com/time-economy/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()
	defer func() {
		_ = logger.Sync()
	}()

	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx := logging.WithLogger(context.Background(), logger)

	// Connections are created once and shared by every request.
	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(ctx, &cfg.Database.Postgres, retry.DefaultRetryConfig())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	redis, err := storage.NewRedisClient(ctx, &cfg.Database.Redis, retry.DefaultRetryConfig())
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() {
		_ = redis.Close()
	}()

	logger.Info("Database connections established")

	if err := storage.NewMigrator(cfg.Database.Postgres.URL(), cfg.Database.Postgres.MigrationsPath).Up(); err != nil {
		logger.WithError(err).Fatal("Failed to apply migrations")
	}

	// Repositories
	profileRepo := storage.NewProfileRepository(postgres)
	needRepo := storage.NewNeedRepository(postgres)
	nonceStore := storage.NewNonceStore(redis, cfg.Auth.NonceTTL)

	resolver, err := identity.NewResolver(&identity.ResolverConfig{
		Profiles:              profileRepo,
		Nonces:                nonceStore,
		RequireIdentityHeader: cfg.Auth.RequireIdentityHeader,
		RequireNonce:          cfg.Auth.RequireNonce,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create identity resolver")
	}

	// Services
	profileService := service.NewProfileService(profileRepo, resolver)
	needService := service.NewNeedService(&service.NeedServiceConfig{
		Store:        needRepo,
		Resolver:     resolver,
		Window:       cfg.Needs.Window,
		MaxPerWindow: cfg.Needs.MaxPerWindow,
	})
	searchService := service.NewSearchService(profileRepo)

	logger.WithFields(map[string]interface{}{
		"needsWindow":       cfg.Needs.Window.String(),
		"needsMaxPerWindow": cfg.Needs.MaxPerWindow,
		"identityHeader":    cfg.Auth.IdentityHeader,
		"requireNonce":      cfg.Auth.RequireNonce,
	}).Info("Services initialized")

	server := api.NewServer(&api.ServerConfig{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		IdentityHeader:    cfg.Auth.IdentityHeader,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, &api.Dependencies{
		Profiles: profileService,
		Needs:    needService,
		Search:   searchService,
		Nonces:   nonceStore,
		Checks: map[string]api.Pinger{
			"postgres": postgres,
			"redis":    redis,
		},
		Logger: logger,
	})

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
