// Package posts implements the tiered content resolver: derived-view
// cache, raw batch, primary archive API, RSS fallback.
package posts

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/substacklab/gateway/internal/cache"
	"github.com/substacklab/gateway/internal/httperr"
	"github.com/substacklab/gateway/internal/logger"
	"github.com/substacklab/gateway/internal/models"
	"github.com/substacklab/gateway/internal/search"
	"github.com/substacklab/gateway/internal/substack"
)

// Source tags the tier that produced a result.
type Source string

const (
	SourceCache    Source = "cache"
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Sort modes for listings.
const (
	SortNew = "new"
	SortTop = "top"
)

// Cache expiries per view shape. Recency-sensitive views expire sooner;
// individual posts are stable once published.
const (
	ttlRawBatch = 24 * time.Hour
	ttlViewNew  = 12 * time.Hour
	ttlViewTop  = 7 * 24 * time.Hour
	ttlPost     = 7 * 24 * time.Hour
)

// rawBatchSize is how much of the archive one raw batch covers.
const rawBatchSize = 50

// PrimarySource is the structured archive API tier.
type PrimarySource interface {
	Archive(ctx context.Context, origin, sort string, offset, limit int) ([]models.Post, error)
	Post(ctx context.Context, origin, slug string) (*models.Post, error)
}

// FeedSource is the RSS fallback tier.
type FeedSource interface {
	All(ctx context.Context, origin string) ([]models.Post, error)
	Post(ctx context.Context, origin, slug string) (*models.Post, error)
}

// Resolver resolves content through the cache, the primary API and the
// feed, opportunistically repopulating the cache as it goes.
type Resolver struct {
	store   cache.Store
	primary PrimarySource
	feed    FeedSource

	// group collapses concurrent raw-batch fetches per origin so a cold
	// cache does not fan out duplicate upstream calls.
	group singleflight.Group

	// stores tracks in-flight background cache writes. Flush waits for
	// them; nothing on the request path ever does.
	stores       sync.WaitGroup
	storeTimeout time.Duration
}

func NewResolver(store cache.Store, primary PrimarySource, feed FeedSource) *Resolver {
	return &Resolver{
		store:        store,
		primary:      primary,
		feed:         feed,
		storeTimeout: 10 * time.Second,
	}
}

// ListResult is a resolved listing plus its provenance.
type ListResult struct {
	Posts  []models.Post
	Source Source
	Origin string
}

// ItemResult is a resolved single post plus its provenance.
type ItemResult struct {
	Post   models.Post
	Source Source
	Origin string
}

// List resolves a sorted, paginated listing for origin.
func (r *Resolver) List(ctx context.Context, scope, origin, sortMode string, limit, offset int) (*ListResult, error) {
	canonical, ok := substack.NormalizePublicationURL(origin)
	if !ok {
		return nil, httperr.BadRequest("Invalid publication url")
	}
	if sortMode != SortNew && sortMode != SortTop {
		return nil, httperr.BadRequest("Invalid sort parameter")
	}
	if err := checkScope(scope, canonical); err != nil {
		return nil, err
	}

	viewKey := cache.PostsViewKey(canonical, sortMode, limit, offset)
	if cached, err := cache.GetCompressed[[]models.Post](ctx, r.store, viewKey); err == nil {
		return &ListResult{Posts: *cached, Source: SourceCache, Origin: canonical}, nil
	} else if err != cache.ErrCacheMiss {
		logger.Get().Warn().Err(err).Str("key", viewKey).Msg("derived view read failed")
	}

	batch, source, err := r.rawBatch(ctx, canonical)
	if err != nil {
		return nil, err
	}

	view := sortPosts(batch, sortMode)
	view = slice(view, limit, offset)

	ttl := ttlViewTop
	if sortMode == SortNew {
		ttl = ttlViewNew
	}
	r.storeAsync(viewKey, view, ttl)

	return &ListResult{Posts: view, Source: source, Origin: canonical}, nil
}

// Search resolves a relevance-ordered, paginated listing for query.
// Search views are never cached; only the raw batch is reused.
func (r *Resolver) Search(ctx context.Context, scope, origin, query string, limit, offset int) (*ListResult, error) {
	canonical, ok := substack.NormalizePublicationURL(origin)
	if !ok {
		return nil, httperr.BadRequest("Invalid publication url")
	}
	if len(query) < 2 {
		return nil, httperr.BadRequest("Query must be at least 2 characters long")
	}
	if err := checkScope(scope, canonical); err != nil {
		return nil, err
	}

	batch, source, err := r.rawBatch(ctx, canonical)
	if err != nil {
		return nil, err
	}

	ranked := search.Rank(batch, query)
	ranked = slice(ranked, limit, offset)

	return &ListResult{Posts: ranked, Source: source, Origin: canonical}, nil
}

// Get resolves a single post by slug.
func (r *Resolver) Get(ctx context.Context, scope, origin, slug string) (*ItemResult, error) {
	canonical, okURL := substack.NormalizePublicationURL(origin)
	canonicalSlug, okSlug := substack.NormalizeSlug(slug)
	if !okURL || !okSlug {
		return nil, httperr.BadRequest("Invalid parameters")
	}
	if err := checkScope(scope, canonical); err != nil {
		return nil, err
	}

	viewKey := cache.PostViewKey(canonical, canonicalSlug)
	if cached, err := cache.GetCompressed[models.Post](ctx, r.store, viewKey); err == nil {
		return &ItemResult{Post: *cached, Source: SourceCache, Origin: canonical}, nil
	} else if err != cache.ErrCacheMiss {
		logger.Get().Warn().Err(err).Str("key", viewKey).Msg("derived view read failed")
	}

	if post, err := r.primary.Post(ctx, canonical, canonicalSlug); err == nil {
		r.storeAsync(viewKey, post, ttlPost)
		return &ItemResult{Post: *post, Source: SourcePrimary, Origin: canonical}, nil
	} else {
		logger.Get().Warn().Err(err).Str("origin", canonical).Str("slug", canonicalSlug).Msg("primary post fetch failed")
	}

	if post, err := r.feed.Post(ctx, canonical, canonicalSlug); err == nil {
		r.storeAsync(viewKey, post, ttlPost)
		return &ItemResult{Post: *post, Source: SourceFallback, Origin: canonical}, nil
	} else {
		logger.Get().Warn().Err(err).Str("origin", canonical).Str("slug", canonicalSlug).Msg("fallback post fetch failed")
	}

	return nil, httperr.NotFound(fmt.Sprintf(
		"Post not found for %q with slug %q after trying cache, primary and fallback", canonical, canonicalSlug))
}

// Flush waits for in-flight background cache writes. Used on shutdown and
// in tests; request handling never blocks on it.
func (r *Resolver) Flush() {
	r.stores.Wait()
}

// rawBatch returns the origin's full fetched batch: cache, then archive
// API, then feed. Concurrent calls per origin share one resolution.
func (r *Resolver) rawBatch(ctx context.Context, origin string) ([]models.Post, Source, error) {
	type batchResult struct {
		posts  []models.Post
		source Source
	}

	v, err, _ := r.group.Do(origin, func() (interface{}, error) {
		key := cache.AllPostsKey(origin)

		if cached, err := cache.GetCompressed[[]models.Post](ctx, r.store, key); err == nil {
			return batchResult{posts: *cached, source: SourceCache}, nil
		} else if err != cache.ErrCacheMiss {
			logger.Get().Warn().Err(err).Str("key", key).Msg("raw batch read failed")
		}

		if posts, err := r.primary.Archive(ctx, origin, SortTop, 0, rawBatchSize); err == nil {
			r.storeAsync(key, posts, ttlRawBatch)
			return batchResult{posts: posts, source: SourcePrimary}, nil
		} else {
			logger.Get().Warn().Err(err).Str("origin", origin).Msg("primary archive fetch failed")
		}

		if posts, err := r.feed.All(ctx, origin); err == nil {
			r.storeAsync(key, posts, ttlRawBatch)
			return batchResult{posts: posts, source: SourceFallback}, nil
		} else {
			logger.Get().Warn().Err(err).Str("origin", origin).Msg("fallback feed fetch failed")
		}

		return nil, httperr.NotFound(fmt.Sprintf(
			"Posts not found for %q after trying cache, primary and fallback", origin))
	})
	if err != nil {
		return nil, "", err
	}

	result := v.(batchResult)
	return result.posts, result.source, nil
}

// storeAsync persists a derived value after the response is on its way.
// Failures are logged and swallowed; the cache is an optimization, never a
// correctness dependency.
func (r *Resolver) storeAsync(key string, value any, ttl time.Duration) {
	r.stores.Add(1)
	go func() {
		defer r.stores.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.storeTimeout)
		defer cancel()
		if err := cache.SetCompressed(ctx, r.store, key, value, ttl); err != nil {
			logger.Get().Error().Err(err).Str("key", key).Msg("background cache store failed")
		}
	}()
}

func checkScope(scope, canonicalOrigin string) error {
	if scope == "*" {
		return nil
	}
	canonicalScope, ok := substack.NormalizePublicationURL(scope)
	if !ok || canonicalScope != canonicalOrigin {
		return httperr.Forbidden("API key does not have access to this publication")
	}
	return nil
}

// sortPosts orders a copy of the batch: new by publish date descending,
// top by likes descending.
func sortPosts(posts []models.Post, sortMode string) []models.Post {
	out := make([]models.Post, len(posts))
	copy(out, posts)

	switch sortMode {
	case SortNew:
		sort.SliceStable(out, func(a, b int) bool {
			return parseDate(out[a].Date).After(parseDate(out[b].Date))
		})
	case SortTop:
		sort.SliceStable(out, func(a, b int) bool {
			return out[a].Likes > out[b].Likes
		})
	}
	return out
}

func parseDate(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// slice applies offset/limit after ordering.
func slice(posts []models.Post, limit, offset int) []models.Post {
	if offset >= len(posts) {
		return []models.Post{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}
