package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/substacklab/gateway/internal/api"
	"github.com/substacklab/gateway/internal/apikey"
	"github.com/substacklab/gateway/internal/cache"
	"github.com/substacklab/gateway/internal/config"
	"github.com/substacklab/gateway/internal/httperr"
	"github.com/substacklab/gateway/internal/logger"
	"github.com/substacklab/gateway/internal/middleware"
	"github.com/substacklab/gateway/internal/posts"
	"github.com/substacklab/gateway/internal/ratelimit"
	"github.com/substacklab/gateway/internal/substack"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})
	log := logger.Get()
	log.Info().Msg("Starting gateway...")

	store, err := cache.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing cache store")
		}
	}()

	backends, err := ratelimit.NewRedisBackends(cfg.RateLimitRedisURLs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize rate limit backends")
	}

	resolver := posts.NewResolver(
		store,
		substack.NewClient(cfg.UpstreamTimeout, cfg.UpstreamRetryCount),
		substack.NewFeedClient(),
	)
	keys := apikey.NewService(store)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: httperr.Handler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())

	gate := middleware.NewGate(middleware.GateConfig{
		Keys:     keys,
		Backends: backends,
	})
	api.SetupRoutes(app, api.NewHandlers(resolver, keys), gate)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let in-flight background cache writes finish before closing the store.
	resolver.Flush()

	log.Info().Msg("Server exited properly")
}
