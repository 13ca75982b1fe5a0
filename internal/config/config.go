package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port            string        `json:"port"`
	Env             string        `json:"env"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	HTTPTimeout     time.Duration `json:"http_timeout"`

	// Cache Redis configuration
	RedisURL string `json:"redis_url"`

	// Rate-limit Redis backends, one per region. A missing regional URL
	// falls back to the cache instance so development needs one Redis only.
	RateLimitRedisURLs map[string]string `json:"rate_limit_redis_urls"`

	// Upstream fetch configuration
	UpstreamTimeout    time.Duration `json:"upstream_timeout"`
	UpstreamRetryCount int           `json:"upstream_retry_count"`

	// Logging
	LogLevel string `json:"log_level"`
}

// Rate-limit backend regions. The geo router picks one of these per request.
var RateLimitRegions = []string{
	"Virginia",
	"California",
	"Germany",
	"Japan",
	"Australia",
	"Brazil",
	"India",
	"Singapore",
}

// Load loads configuration from environment variables
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	redisURL := getEnv("REDIS_URL", "redis://localhost:6379/0")

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		RedisURL:           redisURL,
		RateLimitRedisURLs: loadRateLimitURLs(redisURL),

		UpstreamTimeout:    getEnvAsDuration("UPSTREAM_TIMEOUT", 15*time.Second),
		UpstreamRetryCount: 2,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// loadRateLimitURLs reads REDIS_RATELIMIT_<REGION>_URL for each region.
func loadRateLimitURLs(fallback string) map[string]string {
	urls := make(map[string]string, len(RateLimitRegions))
	for _, region := range RateLimitRegions {
		envKey := "REDIS_RATELIMIT_" + strings.ToUpper(region) + "_URL"
		urls[region] = getEnv(envKey, fallback)
	}
	return urls
}

// Helper functions for environment variable handling
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultVal time.Duration) time.Duration {
	valueStr := getEnv(name, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid %s value: %v, using default: %v", name, err, defaultVal)
		return defaultVal
	}
	return value
}
