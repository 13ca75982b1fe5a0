// Package apikey issues and validates the gateway's access keys and owns
// the path/tier rate-limit policy table.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/substacklab/gateway/internal/cache"
	"github.com/substacklab/gateway/internal/ratelimit"
)

// Key tiers, encoded in the key prefix.
const (
	TierTest   = "test"
	TierLive   = "live"
	TierPublic = "public"
)

// Record statuses. Only active keys authorize requests.
const (
	StatusActive     = "active"
	StatusInactive   = "inactive"
	StatusUnverified = "unverified"
)

// Record is the metadata stored for one issued key. Records are written
// once at issuance and never updated.
type Record struct {
	Type               string `json:"type"`
	Status             string `json:"status"`
	CreatedAt          string `json:"created_at"`
	IssuedTo           string `json:"issued_to"`
	AllowedPublication string `json:"allowed_publication"`
}

// ErrNotFound indicates no record exists for the presented key.
var ErrNotFound = errors.New("api key not found")

// Service issues keys and loads their records from the uncompressed cache
// tier. Records are stored without expiry.
type Service struct {
	store cache.Store
}

func NewService(store cache.Store) *Service {
	return &Service{store: store}
}

// Issue creates a live-tier key for issuedTo, scoped to
// allowedPublication, and persists its record. Live keys start unverified.
func (s *Service) Issue(ctx context.Context, issuedTo, allowedPublication string) (string, Record, error) {
	key, record := newKey(TierLive, issuedTo, allowedPublication, true)
	if err := cache.SetJSON(ctx, s.store, cache.APIKeyKey(key), record, 0); err != nil {
		return "", Record{}, fmt.Errorf("store api key: %w", err)
	}
	return key, record, nil
}

// Lookup loads the record for key. Returns ErrNotFound when the key was
// never issued.
func (s *Service) Lookup(ctx context.Context, key string) (Record, error) {
	record, err := cache.GetJSON[Record](ctx, s.store, cache.APIKeyKey(key))
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return *record, nil
}

func newKey(tier, issuedTo, allowedPublication string, needsVerification bool) (string, Record) {
	randomPart := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := fmt.Sprintf("sk_%s_%s", tier, randomPart)

	status := StatusUnverified
	if tier == TierTest || !needsVerification {
		status = StatusActive
	}

	return key, Record{
		Type:               tier,
		Status:             status,
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
		IssuedTo:           issuedTo,
		AllowedPublication: allowedPublication,
	}
}

// HasValidPrefix reports whether key follows the sk_ prefix convention.
func HasValidPrefix(key string) bool {
	return strings.HasPrefix(key, "sk_")
}

// IsLive reports whether key is a live-tier key.
func IsLive(key string) bool {
	return strings.HasPrefix(key, "sk_live")
}

// PolicyFor determines the rate-limit policy from the request path and the
// key's tier prefix alone. Live keys get the generous per-endpoint limits;
// every other tier gets the conservative fallback. Key issuance is capped
// per day regardless of tier.
func PolicyFor(path, key string) ratelimit.Policy {
	fallback := ratelimit.Policy{Requests: 3, Window: time.Minute}
	live := IsLive(key)

	switch path {
	case "/posts/latest", "/posts/top":
		if live {
			return ratelimit.Policy{Requests: 10, Window: time.Minute}
		}
		return fallback
	case "/posts/search":
		if live {
			return ratelimit.Policy{Requests: 20, Window: time.Minute}
		}
		return fallback
	case "/post":
		if live {
			return ratelimit.Policy{Requests: 15, Window: time.Minute}
		}
		return fallback
	case "/api_key/generate":
		return ratelimit.Policy{Requests: 3, Window: 24 * time.Hour}
	case "/api_key/validate":
		if live {
			return ratelimit.Policy{Requests: 5, Window: time.Minute}
		}
		return fallback
	default:
		return fallback
	}
}
