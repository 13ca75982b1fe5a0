// Package cache provides the keyed value store backing access records,
// raw post batches and derived result views, together with the
// compression codec and the namespaced key builders shared by all of them.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss indicates the requested key was not found (or expired).
// Absence means "unknown", never "definitely not found".
var ErrCacheMiss = errors.New("cache miss")

// Store is a keyed string store with optional per-entry expiry.
// A zero TTL stores the entry without expiry.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
