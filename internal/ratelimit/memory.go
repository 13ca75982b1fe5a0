package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is an in-process sliding-window limiter used in tests and
// when no Redis backend is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string][]time.Time)}
}

func (m *MemoryLimiter) Allow(ctx context.Context, key string, policy Policy) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-policy.Window)

	window := m.windows[key]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) < policy.Requests {
		kept = append(kept, now)
		m.windows[key] = kept
		return Decision{
			Allowed:   true,
			Limit:     policy.Requests,
			Remaining: policy.Requests - len(kept),
			Reset:     kept[0].Add(policy.Window),
		}, nil
	}

	m.windows[key] = kept
	reset := kept[0].Add(policy.Window)
	retryAfter := time.Until(reset)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{
		Allowed:    false,
		Limit:      policy.Requests,
		Remaining:  0,
		Reset:      reset,
		RetryAfter: retryAfter,
	}, nil
}
