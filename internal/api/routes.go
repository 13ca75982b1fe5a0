package api

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/substacklab/gateway/internal/middleware"
)

// SetupRoutes configures all routes. Health and metrics stay outside the
// gate; everything else goes through access control and rate limiting.
func SetupRoutes(app *fiber.App, handlers *Handlers, gate fiber.Handler) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET",
		AllowHeaders: "Content-Type, x-api-key",
		ExposeHeaders: "Content-Type, " +
			middleware.HeaderRateLimitLimit + ", " +
			middleware.HeaderRateLimitRemaining + ", " +
			middleware.HeaderRateLimitReset + ", " +
			middleware.HeaderRateLimitDatabase + ", " +
			middleware.HeaderRateLimitPolicy + ", " +
			middleware.HeaderRetryAfter + ", " +
			middleware.HeaderKeyCreatedAt + ", " +
			middleware.HeaderKeyStatus + ", " +
			middleware.HeaderKeyAllowedPublication,
	}))

	app.Get("/healthz", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(gate)

	app.Get("/posts/top", handlers.TopPosts)
	app.Get("/posts/latest", handlers.LatestPosts)
	app.Get("/posts/search", handlers.SearchPosts)
	app.Get("/post", handlers.GetPost)

	keys := app.Group("/api_key")
	keys.Get("/generate", handlers.GenerateKey)
	keys.Get("/validate", handlers.ValidateKey)
}
