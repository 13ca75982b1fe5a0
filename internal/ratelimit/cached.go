package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CachedLimiter remembers keys the backend has already blocked and denies
// them locally until their window resets. This only trims duplicate backend
// calls during a denial burst; correctness still rests on the backend's
// atomic counter.
type CachedLimiter struct {
	inner   Limiter
	mu      sync.Mutex
	blocked map[string]Decision
}

func NewCached(inner Limiter) *CachedLimiter {
	return &CachedLimiter{
		inner:   inner,
		blocked: make(map[string]Decision),
	}
}

func (c *CachedLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	c.mu.Lock()
	if decision, ok := c.blocked[key]; ok {
		if time.Now().Before(decision.Reset) {
			decision.RetryAfter = time.Until(decision.Reset)
			c.mu.Unlock()
			return decision, nil
		}
		delete(c.blocked, key)
	}
	c.mu.Unlock()

	decision, err := c.inner.Allow(ctx, key, policy)
	if err != nil {
		return decision, err
	}

	if !decision.Allowed {
		c.mu.Lock()
		c.blocked[key] = decision
		c.mu.Unlock()
	}
	return decision, nil
}
