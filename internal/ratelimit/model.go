// Package ratelimit implements the sliding-window request limiter backed
// by the region-selected Redis instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy is the limit applied to a caller: at most Requests within a
// trailing Window. It is a pure function of endpoint path and key tier,
// never of region or traffic history.
type Policy struct {
	Requests int
	Window   time.Duration
}

// String renders the policy for the X-RateLimit-Policy header.
func (p Policy) String() string {
	return fmt.Sprintf("%d requests per %ds", p.Requests, int(p.Window.Seconds()))
}

// Decision is the outcome of one check-and-increment.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter checks and counts a request for key atomically.
type Limiter interface {
	Allow(ctx context.Context, key string, policy Policy) (Decision, error)
}
