package api

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/substacklab/gateway/internal/apikey"
	"github.com/substacklab/gateway/internal/httperr"
	"github.com/substacklab/gateway/internal/logger"
	"github.com/substacklab/gateway/internal/middleware"
	"github.com/substacklab/gateway/internal/posts"
)

const (
	defaultLimit  = 25
	maxLimit      = 50
	defaultOffset = 0
)

type Handlers struct {
	resolver *posts.Resolver
	keys     *apikey.Service
	validate *validator.Validate
}

func NewHandlers(resolver *posts.Resolver, keys *apikey.Service) *Handlers {
	return &Handlers{
		resolver: resolver,
		keys:     keys,
		validate: validator.New(),
	}
}

type listingQuery struct {
	PublicationURL string `query:"publication_url" validate:"required"`
	Limit          int    `query:"limit" validate:"gte=1,lte=50"`
	Offset         int    `query:"offset" validate:"gte=0"`
}

type searchQuery struct {
	PublicationURL string `query:"publication_url" validate:"required"`
	Query          string `query:"query" validate:"required,min=2"`
	Limit          int    `query:"limit" validate:"gte=1,lte=50"`
	Offset         int    `query:"offset" validate:"gte=0"`
}

type postQuery struct {
	PublicationURL string `query:"publication_url" validate:"required"`
	Slug           string `query:"slug" validate:"required"`
}

type generateQuery struct {
	Email              string `query:"email" validate:"required,email"`
	AllowedPublication string `query:"allowed_publication" validate:"required"`
}

// HealthCheck handles GET /healthz (ungated).
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// TopPosts handles GET /posts/top.
func (h *Handlers) TopPosts(c *fiber.Ctx) error {
	return h.listing(c, posts.SortTop, "top_posts_endpoint")
}

// LatestPosts handles GET /posts/latest.
func (h *Handlers) LatestPosts(c *fiber.Ctx) error {
	return h.listing(c, posts.SortNew, "latest_posts_endpoint")
}

func (h *Handlers) listing(c *fiber.Ctx, sortMode, event string) error {
	var q listingQuery
	if err := h.parseQuery(c, &q); err != nil {
		return err
	}

	result, err := h.resolver.List(c.Context(), scopeFrom(c), q.PublicationURL, sortMode, q.Limit, q.Offset)
	if err != nil {
		return err
	}

	logger.Get().Info().
		Str("event", event).
		Str("source", string(result.Source)).
		Str("publication_url", result.Origin).
		Int("posts_count", len(result.Posts)).
		Msg("listing resolved")

	return c.JSON(posts.NewListResponse(result, q.Limit, q.Offset))
}

// SearchPosts handles GET /posts/search.
func (h *Handlers) SearchPosts(c *fiber.Ctx) error {
	var q searchQuery
	if err := h.parseQuery(c, &q); err != nil {
		return err
	}

	result, err := h.resolver.Search(c.Context(), scopeFrom(c), q.PublicationURL, q.Query, q.Limit, q.Offset)
	if err != nil {
		return err
	}

	logger.Get().Info().
		Str("event", "search_posts_endpoint").
		Str("source", string(result.Source)).
		Str("publication_url", result.Origin).
		Int("posts_count", len(result.Posts)).
		Msg("search resolved")

	return c.JSON(posts.NewListResponse(result, q.Limit, q.Offset))
}

// GetPost handles GET /post.
func (h *Handlers) GetPost(c *fiber.Ctx) error {
	var q postQuery
	if err := h.parseQuery(c, &q); err != nil {
		return err
	}

	result, err := h.resolver.Get(c.Context(), scopeFrom(c), q.PublicationURL, q.Slug)
	if err != nil {
		return err
	}

	logger.Get().Info().
		Str("event", "post_endpoint").
		Str("source", string(result.Source)).
		Str("publication_url", result.Origin).
		Str("slug", result.Post.Slug).
		Msg("post resolved")

	return c.JSON(posts.NewItemResponse(result))
}

// GenerateKey handles GET /api_key/generate. The new key is returned as
// plain text.
func (h *Handlers) GenerateKey(c *fiber.Ctx) error {
	var q generateQuery
	if err := h.parseQuery(c, &q); err != nil {
		return err
	}

	key, record, err := h.keys.Issue(c.Context(), q.Email, q.AllowedPublication)
	if err != nil {
		return fmt.Errorf("issue api key: %w", err)
	}

	logger.Get().Info().
		Str("event", "generate_api_key_endpoint").
		Str("issued_to", record.IssuedTo).
		Msg("api key issued")

	return c.SendString(key)
}

// ValidateKey handles GET /api_key/validate. The gate already did the
// work; the key's record is in the response headers.
func (h *Handlers) ValidateKey(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "API key validated. Check the headers for the API key information.",
	})
}

func (h *Handlers) parseQuery(c *fiber.Ctx, out any) error {
	if err := c.QueryParser(out); err != nil {
		return httperr.BadRequest("Invalid query parameters")
	}
	setListingDefaults(out)
	if err := h.validate.Struct(out); err != nil {
		return httperr.BadRequest(validationMessage(err))
	}
	return nil
}

// setListingDefaults fills zero-valued paging fields before validation so
// omitted params pass the gte=1 bound.
func setListingDefaults(out any) {
	switch q := out.(type) {
	case *listingQuery:
		applyPagingDefaults(&q.Limit, &q.Offset)
	case *searchQuery:
		applyPagingDefaults(&q.Limit, &q.Offset)
	}
}

func applyPagingDefaults(limit, offset *int) {
	if *limit == 0 {
		*limit = defaultLimit
	}
	if *limit > maxLimit {
		*limit = maxLimit
	}
	if *offset < 0 {
		*offset = defaultOffset
	}
}

func validationMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		return fmt.Sprintf("Invalid query parameter: %s (%s)", first.Field(), first.Tag())
	}
	return "Invalid query parameters"
}

func scopeFrom(c *fiber.Ctx) string {
	if scope, ok := c.Locals(middleware.ScopeKey).(string); ok {
		return scope
	}
	return ""
}
