package middleware

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/substacklab/gateway/internal/apikey"
	"github.com/substacklab/gateway/internal/geo"
	"github.com/substacklab/gateway/internal/httperr"
	"github.com/substacklab/gateway/internal/ratelimit"
	"github.com/substacklab/gateway/internal/substack"
)

// ScopeKey is where the gate stores the caller's allowed publication for
// downstream handlers.
const ScopeKey = "allowedPublication"

// Header names surfaced by the gate.
const (
	HeaderAPIKey = "x-api-key"

	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRateLimitDatabase  = "X-RateLimit-Database"
	HeaderRateLimitPolicy    = "X-RateLimit-Policy"
	HeaderRetryAfter         = "Retry-After"

	HeaderKeyCreatedAt          = "X-API-Key-Created-At"
	HeaderKeyStatus             = "X-API-Key-Status"
	HeaderKeyAllowedPublication = "X-API-Key-Allowed-Publication"

	headerTimezone = "cf-timezone"
	headerCountry  = "cf-ipcountry"
)

// Defaults when the edge supplies no location hints.
const (
	defaultTimezone = "America/New_York"
	defaultCountry  = "US"
)

// GateConfig wires the access-control and rate-limiting gate.
type GateConfig struct {
	Keys     *apikey.Service
	Backends *ratelimit.Backends
}

// NewGate returns the middleware every content and key endpoint sits
// behind: key format check, then the sliding-window limit against the
// geo-selected backend, then the key record check. All of it runs before
// any resolver work.
func NewGate(cfg GateConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(HeaderAPIKey)
		if key == "" {
			return httperr.Unauthorized("Missing API key")
		}
		if !apikey.HasValidPrefix(key) {
			return httperr.Unauthorized("Invalid API key format")
		}

		policy := apikey.PolicyFor(c.Path(), key)
		if err := checkRateLimit(c, cfg.Backends, policy); err != nil {
			return err
		}

		scope, err := checkKeyRecord(c, cfg.Keys, key)
		if err != nil {
			return err
		}

		c.Locals(ScopeKey, scope)
		return c.Next()
	}
}

// checkRateLimit applies the policy against the region-selected backend and
// surfaces the limit headers on success and failure alike. A caller whose
// address cannot be determined is rejected, never waved through, and a
// limiter backend failure surfaces as a 500 rather than admitting the
// request unlimited.
func checkRateLimit(c *fiber.Ctx, backends *ratelimit.Backends, policy ratelimit.Policy) error {
	ip := c.IP()
	if ip == "" {
		return httperr.BadRequest("IP address not found")
	}

	timezone := c.Get(headerTimezone, defaultTimezone)
	country := c.Get(headerCountry, defaultCountry)
	region := geo.ClosestRegion(timezone, country)

	decision, err := backends.For(region).Allow(c.Context(), ip, policy)
	if err != nil {
		return fmt.Errorf("rate limit check (%s): %w", region, err)
	}

	c.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
	c.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
	c.Set(HeaderRateLimitReset, strconv.FormatInt(decision.Reset.Unix(), 10))
	c.Set(HeaderRateLimitDatabase, string(region))

	ratelimit.ObserveDecision(decision.Allowed, string(region))

	if !decision.Allowed {
		retryAfter := int(decision.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		return httperr.RateLimited("Rate limit exceeded", map[string]string{
			HeaderRetryAfter:      strconv.Itoa(retryAfter),
			HeaderRateLimitPolicy: policy.String(),
		})
	}
	return nil
}

// checkKeyRecord loads the key's record, enforces status and scope, and
// exposes the record to the caller via response headers.
func checkKeyRecord(c *fiber.Ctx, keys *apikey.Service, key string) (string, error) {
	record, err := keys.Lookup(c.Context(), key)
	if err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			return "", httperr.Unauthorized(fmt.Sprintf("Invalid API key (%s)", key))
		}
		return "", fmt.Errorf("api key lookup: %w", err)
	}

	if record.Status == apikey.StatusInactive {
		return "", httperr.Forbidden(fmt.Sprintf("Inactive API key (%s)", key))
	}

	scope := record.AllowedPublication
	if scope != "*" {
		canonical, ok := substack.NormalizePublicationURL(scope)
		if !ok {
			return "", httperr.Forbidden("API key does not have a valid allowed publication")
		}
		scope = canonical
	}

	c.Set(HeaderKeyCreatedAt, record.CreatedAt)
	c.Set(HeaderKeyStatus, record.Status)
	c.Set(HeaderKeyAllowedPublication, scope)

	return scope, nil
}
