package substack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/substacklab/gateway/internal/models"
)

// Client talks to the publication's archive API (the primary tier).
type Client struct {
	http *resty.Client
}

func NewClient(timeout time.Duration, retryCount int) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(retryCount).
			SetRetryWaitTime(1 * time.Second).
			SetRetryMaxWaitTime(5 * time.Second),
	}
}

// archivePost is the raw archive API shape before normalization.
type archivePost struct {
	Slug              string         `json:"slug"`
	CanonicalURL      string         `json:"canonical_url"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Subtitle          string         `json:"subtitle"`
	TruncatedBodyText *string        `json:"truncated_body_text"`
	BodyHTML          *string        `json:"body_html"`
	Wordcount         int            `json:"wordcount"`
	PostDate          string         `json:"post_date"`
	Audience          string         `json:"audience"`
	CoverImage        string         `json:"cover_image"`
	Reactions         map[string]int `json:"reactions"`
	AudioItems        []struct {
		AudioURL *string `json:"audio_url"`
	} `json:"audio_items"`
	CoverImagePalette map[string]struct {
		RGB []float64 `json:"rgb"`
	} `json:"coverImagePalette"`
	PublishedBylines []struct {
		Name     string `json:"name"`
		PhotoURL string `json:"photo_url"`
	} `json:"publishedBylines"`
}

// Archive fetches a page of the publication's archive, normalized.
func (c *Client) Archive(ctx context.Context, origin, sort string, offset, limit int) ([]models.Post, error) {
	url := fmt.Sprintf("%s/api/v1/archive?sort=%s&offset=%d&limit=%d", origin, sort, offset, limit)

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch archive from %s: %w", origin, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), origin)
	}

	var raw []archivePost
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("parse archive response: %w", err)
	}

	posts := make([]models.Post, 0, len(raw))
	for _, p := range raw {
		// Archive listings never include the full body.
		posts = append(posts, normalizeArchivePost(p, false))
	}
	return posts, nil
}

// Post fetches a single post by slug, normalized with its full body.
func (c *Client) Post(ctx context.Context, origin, slug string) (*models.Post, error) {
	url := fmt.Sprintf("%s/api/v1/posts/%s", origin, slug)

	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch post from %s: %w", origin, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode(), origin)
	}

	var raw archivePost
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("parse post response: %w", err)
	}

	post := normalizeArchivePost(raw, true)
	return &post, nil
}

func normalizeArchivePost(p archivePost, includeBody bool) models.Post {
	description := p.Description
	if description == "" {
		description = p.Subtitle
	}

	var audioURL *string
	if len(p.AudioItems) > 0 {
		audioURL = p.AudioItems[0].AudioURL
	}

	var bodyHTML *string
	if includeBody {
		bodyHTML = p.BodyHTML
	}

	author := ""
	authorPhoto := ""
	if len(p.PublishedBylines) > 0 {
		author = p.PublishedBylines[0].Name
		authorPhoto = p.PublishedBylines[0].PhotoURL
	}

	return models.Post{
		Slug:               p.Slug,
		URL:                p.CanonicalURL,
		Title:              p.Title,
		Description:        description,
		Excerpt:            p.TruncatedBodyText,
		BodyHTML:           bodyHTML,
		ReadingTimeMinutes: ReadingTimeMinutes(p.Wordcount),
		AudioURL:           audioURL,
		Date:               p.PostDate,
		Likes:              p.Reactions["❤"],
		Paywall:            p.Audience != "everyone",
		CoverImage:         coverImage(p.CoverImage),
		CoverImagePalette:  palette(p.CoverImagePalette),
		Author:             author,
		AuthorImage:        authorImage(authorPhoto),
	}
}

func coverImage(url string) models.CoverImage {
	var original *string
	if url != "" {
		original = &url
	}
	return models.CoverImage{
		Original: original,
		OG:       OGImageURL(url),
		Small:    ResizedImage(url, 150),
		Medium:   ResizedImage(url, 424),
		Large:    ResizedImage(url, 848),
	}
}

func authorImage(url string) models.AuthorImage {
	var original *string
	if url != "" {
		original = &url
	}
	return models.AuthorImage{
		Original: original,
		Small:    ResizedImage(url, 32),
		Medium:   ResizedImage(url, 72),
		Large:    ResizedImage(url, 192),
	}
}

func palette(raw map[string]struct {
	RGB []float64 `json:"rgb"`
}) models.ColorPalette {
	color := func(name string) *string {
		entry, ok := raw[name]
		if !ok {
			return nil
		}
		return PaletteColor(entry.RGB)
	}
	return models.ColorPalette{
		Vibrant:      color("Vibrant"),
		LightVibrant: color("LightVibrant"),
		DarkVibrant:  color("DarkVibrant"),
		Muted:        color("Muted"),
		LightMuted:   color("LightMuted"),
		DarkMuted:    color("DarkMuted"),
	}
}
