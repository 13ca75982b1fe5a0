package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/substacklab/gateway/internal/geo"
)

// Backends holds one limiter per regional Redis instance. Region selection
// only picks the backend; the policy values are the same everywhere.
type Backends struct {
	limiters map[geo.Region]Limiter
	fallback geo.Region
}

// NewRedisBackends dials one Redis client per configured region. URLs that
// repeat (development runs every region against one instance) share a
// client.
func NewRedisBackends(urls map[string]string) (*Backends, error) {
	clients := make(map[string]*redis.Client)
	limiters := make(map[geo.Region]Limiter, len(urls))

	for region, redisURL := range urls {
		client, ok := clients[redisURL]
		if !ok {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				return nil, fmt.Errorf("rate limit backend %s: %w", region, err)
			}
			client = redis.NewClient(opt)
			clients[redisURL] = client
		}
		limiters[geo.Region(region)] = NewCached(NewRedisLimiter(client))
	}

	return &Backends{limiters: limiters, fallback: geo.Germany}, nil
}

// NewStaticBackends routes every region to the given limiter (tests).
func NewStaticBackends(limiter Limiter) *Backends {
	return &Backends{
		limiters: map[geo.Region]Limiter{geo.Germany: limiter},
		fallback: geo.Germany,
	}
}

// For returns the limiter for region, falling back to the default region's
// backend when the region has no configured instance.
func (b *Backends) For(region geo.Region) Limiter {
	if limiter, ok := b.limiters[region]; ok {
		return limiter
	}
	return b.limiters[b.fallback]
}
