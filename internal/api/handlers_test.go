package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/substacklab/gateway/internal/apikey"
	"github.com/substacklab/gateway/internal/cache"
	"github.com/substacklab/gateway/internal/httperr"
	"github.com/substacklab/gateway/internal/middleware"
	"github.com/substacklab/gateway/internal/models"
	"github.com/substacklab/gateway/internal/posts"
	"github.com/substacklab/gateway/internal/ratelimit"
)

const testPublication = "https://example.substack.com"

var errNoUpstream = errors.New("no upstream data")

type stubPrimary struct{ posts []models.Post }

func (s *stubPrimary) Archive(ctx context.Context, origin, sort string, offset, limit int) ([]models.Post, error) {
	return s.posts, nil
}

func (s *stubPrimary) Post(ctx context.Context, origin, slug string) (*models.Post, error) {
	for _, p := range s.posts {
		if p.Slug == slug {
			out := p
			return &out, nil
		}
	}
	return nil, errNoUpstream
}

type stubFeed struct{}

func (stubFeed) All(ctx context.Context, origin string) ([]models.Post, error) {
	return nil, errNoUpstream
}

func (stubFeed) Post(ctx context.Context, origin, slug string) (*models.Post, error) {
	return nil, errNoUpstream
}

type testEnv struct {
	app      *fiber.App
	store    *cache.MemoryStore
	resolver *posts.Resolver
}

func newTestEnv(t *testing.T, upstream []models.Post) *testEnv {
	t.Helper()
	return newTestEnvWithLimiter(t, upstream, ratelimit.NewMemoryLimiter())
}

func newTestEnvWithLimiter(t *testing.T, upstream []models.Post, limiter ratelimit.Limiter) *testEnv {
	t.Helper()

	store := cache.NewMemoryStore()
	resolver := posts.NewResolver(store, &stubPrimary{posts: upstream}, stubFeed{})
	keys := apikey.NewService(store)

	app := fiber.New(fiber.Config{ErrorHandler: httperr.Handler})
	gate := middleware.NewGate(middleware.GateConfig{
		Keys:     keys,
		Backends: ratelimit.NewStaticBackends(limiter),
	})
	SetupRoutes(app, NewHandlers(resolver, keys), gate)

	return &testEnv{app: app, store: store, resolver: resolver}
}

// seedKey writes a key record directly, bypassing issuance, so tests can
// control tier and status.
func (e *testEnv) seedKey(t *testing.T, key string, record apikey.Record) {
	t.Helper()
	if err := cache.SetJSON(context.Background(), e.store, cache.APIKeyKey(key), record, 0); err != nil {
		t.Fatalf("seed key: %v", err)
	}
}

func activeRecord(scope string) apikey.Record {
	return apikey.Record{
		Type:               apikey.TierLive,
		Status:             apikey.StatusActive,
		CreatedAt:          time.Now().UTC().Format(time.RFC3339),
		IssuedTo:           "tester@example.com",
		AllowedPublication: scope,
	}
}

func (e *testEnv) get(t *testing.T, path, key string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set(middleware.HeaderAPIKey, key)
	}
	resp, err := e.app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

type listBody struct {
	Data     []models.Post `json:"data"`
	Metadata struct {
		Source         string `json:"source"`
		PublicationURL string `json:"publication_url"`
		PostsCount     int    `json:"posts_count"`
		Limit          int    `json:"limit"`
		Offset         int    `json:"offset"`
	} `json:"metadata"`
}

func decodeList(t *testing.T, resp *http.Response) listBody {
	t.Helper()
	var body listBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode list body: %v", err)
	}
	return body
}

func upstreamPosts() []models.Post {
	return []models.Post{
		{Slug: "quiet-launch", Title: "A quiet launch", Date: "2024-03-01T00:00:00Z", Likes: 5},
		{Slug: "big-announcement", Title: "The big announcement", Date: "2024-01-15T00:00:00Z", Likes: 120},
		{Slug: "retrospective", Title: "Year in review", Date: "2024-02-10T00:00:00Z", Likes: 40},
	}
}

func TestHealthzIsUngated(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.get(t, "/healthz", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("healthz without key = %d, want 200", resp.StatusCode)
	}
}

func TestGateRejectsMissingAndMalformedKeys(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.get(t, "/posts/top?publication_url="+testPublication, "")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("missing key = %d, want 401", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Missing API key" {
		t.Errorf("missing key message = %q", msg)
	}

	resp = env.get(t, "/posts/top?publication_url="+testPublication, "pk_live_wrong")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("bad prefix = %d, want 401", resp.StatusCode)
	}

	resp = env.get(t, "/posts/top?publication_url="+testPublication, "sk_live_neverissued")
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("unknown key = %d, want 401", resp.StatusCode)
	}
}

func TestGateRejectsInactiveKey(t *testing.T) {
	env := newTestEnv(t, nil)
	record := activeRecord("*")
	record.Status = apikey.StatusInactive
	env.seedKey(t, "sk_live_revoked", record)

	resp := env.get(t, "/posts/top?publication_url="+testPublication, "sk_live_revoked")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("inactive key = %d, want 403", resp.StatusCode)
	}
}

func TestGateEnforcesScope(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_scoped", activeRecord("other.substack.com"))

	resp := env.get(t, "/posts/top?publication_url="+testPublication, "sk_live_scoped")
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("out-of-scope request = %d, want 403", resp.StatusCode)
	}

	resp = env.get(t, "/posts/top?publication_url=https://other.substack.com", "sk_live_scoped")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("in-scope request = %d, want 200", resp.StatusCode)
	}
	env.resolver.Flush()
}

func TestTopPostsEndToEnd(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/posts/top?publication_url=example.substack.com", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(middleware.HeaderRateLimitLimit); got != "10" {
		t.Errorf("limit header = %q, want 10 for a live key", got)
	}
	if resp.Header.Get(middleware.HeaderRateLimitRemaining) == "" {
		t.Error("remaining header missing")
	}
	if resp.Header.Get(middleware.HeaderKeyStatus) != apikey.StatusActive {
		t.Errorf("key status header = %q", resp.Header.Get(middleware.HeaderKeyStatus))
	}

	body := decodeList(t, resp)
	if body.Metadata.Source != "primary" {
		t.Errorf("cold source = %q, want primary", body.Metadata.Source)
	}
	if body.Metadata.PublicationURL != testPublication {
		t.Errorf("publication_url = %q, want canonical %q", body.Metadata.PublicationURL, testPublication)
	}
	if body.Metadata.Limit != 25 || body.Metadata.Offset != 0 {
		t.Errorf("paging defaults = %d/%d, want 25/0", body.Metadata.Limit, body.Metadata.Offset)
	}
	wantOrder := []string{"big-announcement", "retrospective", "quiet-launch"}
	if len(body.Data) != len(wantOrder) {
		t.Fatalf("got %d posts, want %d", len(body.Data), len(wantOrder))
	}
	for i, slug := range wantOrder {
		if body.Data[i].Slug != slug {
			t.Errorf("position %d = %q, want %q", i, body.Data[i].Slug, slug)
		}
	}

	env.resolver.Flush()
	resp = env.get(t, "/posts/top?publication_url=example.substack.com", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("warm status = %d, want 200", resp.StatusCode)
	}
	if body := decodeList(t, resp); body.Metadata.Source != "cache" {
		t.Errorf("warm source = %q, want cache", body.Metadata.Source)
	}
}

func TestLatestPostsSortsByDate(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/posts/latest?publication_url="+testPublication+"&limit=2", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeList(t, resp)
	if len(body.Data) != 2 {
		t.Fatalf("limit=2 returned %d posts", len(body.Data))
	}
	if body.Data[0].Slug != "quiet-launch" || body.Data[1].Slug != "retrospective" {
		t.Errorf("order = %q, %q; want newest first", body.Data[0].Slug, body.Data[1].Slug)
	}
	env.resolver.Flush()
}

func TestSearchEndpoint(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/posts/search?publication_url="+testPublication+"&query=announcement", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeList(t, resp)
	if len(body.Data) != 1 || body.Data[0].Slug != "big-announcement" {
		t.Errorf("search results = %+v, want only big-announcement", body.Data)
	}

	resp = env.get(t, "/posts/search?publication_url="+testPublication+"&query=x", "sk_live_reader")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("one-char query = %d, want 400", resp.StatusCode)
	}
	env.resolver.Flush()
}

func TestGetPostEndpoint(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/post?publication_url="+testPublication+"&slug=retrospective", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Data     models.Post `json:"data"`
		Metadata struct {
			Source string `json:"source"`
		} `json:"metadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Slug != "retrospective" {
		t.Errorf("slug = %q", body.Data.Slug)
	}
	if body.Metadata.Source != "primary" {
		t.Errorf("source = %q, want primary", body.Metadata.Source)
	}

	resp = env.get(t, "/post?publication_url="+testPublication+"&slug=no-such-post", "sk_live_reader")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("missing post = %d, want 404", resp.StatusCode)
	}
	env.resolver.Flush()
}

func TestQueryValidation(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/posts/top", "sk_live_reader")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("missing publication_url = %d, want 400", resp.StatusCode)
	}

	resp = env.get(t, "/posts/top?publication_url="+testPublication+"&limit=500", "sk_live_reader")
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("oversized limit should be clamped, got %d", resp.StatusCode)
	}
	if body := decodeList(t, resp); body.Metadata.Limit != 50 {
		t.Errorf("clamped limit = %d, want 50", body.Metadata.Limit)
	}
	env.resolver.Flush()
}

func TestRateLimitExceeded(t *testing.T) {
	env := newTestEnv(t, upstreamPosts())
	record := activeRecord("*")
	record.Type = apikey.TierTest
	env.seedKey(t, "sk_test_burst", record)

	path := "/posts/top?publication_url=" + testPublication
	for i := 0; i < 3; i++ {
		resp := env.get(t, path, "sk_test_burst")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("request #%d = %d, want 200", i+1, resp.StatusCode)
		}
		if got := resp.Header.Get(middleware.HeaderRateLimitLimit); got != "3" {
			t.Errorf("test-tier limit header = %q, want 3", got)
		}
	}

	resp := env.get(t, path, "sk_test_burst")
	if resp.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("4th request = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get(middleware.HeaderRetryAfter) == "" {
		t.Error("429 response missing Retry-After")
	}
	if got := resp.Header.Get(middleware.HeaderRateLimitPolicy); got != "3 requests per 60s" {
		t.Errorf("policy header = %q", got)
	}
	env.resolver.Flush()
}

type downLimiter struct{}

func (downLimiter) Allow(ctx context.Context, key string, policy ratelimit.Policy) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("backend connection refused")
}

func TestRateLimitBackendFailureIsNotWavedThrough(t *testing.T) {
	env := newTestEnvWithLimiter(t, upstreamPosts(), downLimiter{})
	env.seedKey(t, "sk_live_reader", activeRecord("*"))

	resp := env.get(t, "/posts/top?publication_url="+testPublication, "sk_live_reader")
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("limiter backend down = %d, want 500", resp.StatusCode)
	}
	// The generic 500 body must not leak the backend error text.
	if msg := decodeError(t, resp); msg != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("500 body = %q, want generic status text", msg)
	}
	if resp.Header.Get(middleware.HeaderRateLimitLimit) != "" {
		t.Error("failed rate limit check should not emit limit headers")
	}
}

func TestGenerateAndValidateKeyFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	env.seedKey(t, "sk_live_bootstrap", activeRecord("*"))

	resp := env.get(t,
		"/api_key/generate?email=new@example.com&allowed_publication="+testPublication,
		"sk_live_bootstrap")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("generate = %d, want 200", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read generated key: %v", err)
	}
	newKey := string(raw)
	if len(newKey) != len("sk_live_")+32 {
		t.Fatalf("generated key %q has unexpected shape", newKey)
	}

	resp = env.get(t, "/api_key/validate", newKey)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("validate = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get(middleware.HeaderKeyStatus); got != apikey.StatusUnverified {
		t.Errorf("fresh key status header = %q, want unverified", got)
	}
	if got := resp.Header.Get(middleware.HeaderKeyAllowedPublication); got != testPublication {
		t.Errorf("allowed publication header = %q, want %q", got, testPublication)
	}

	resp = env.get(t, "/api_key/generate?email=not-an-email&allowed_publication="+testPublication, "sk_live_bootstrap")
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("bad email = %d, want 400", resp.StatusCode)
	}
}
