package substack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/substacklab/gateway/internal/models"
)

// FeedClient reads the publication's RSS feed (the fallback tier). The
// feed carries no reaction counts or palette data, so those fields stay at
// their zero/absent values.
type FeedClient struct {
	parser *gofeed.Parser
}

func NewFeedClient() *FeedClient {
	return &FeedClient{parser: gofeed.NewParser()}
}

// All fetches and normalizes every item in the publication's feed.
func (f *FeedClient) All(ctx context.Context, origin string) ([]models.Post, error) {
	feed, err := f.parser.ParseURLWithContext(origin+"/feed", ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed from %s: %w", origin, err)
	}

	var siteImage string
	if feed.Image != nil {
		siteImage = feed.Image.URL
	}

	posts := make([]models.Post, 0, len(feed.Items))
	for _, item := range feed.Items {
		posts = append(posts, normalizeFeedItem(item, siteImage))
	}
	return posts, nil
}

// Post scans the feed for a single slug. Feeds only carry recent items, so
// a miss here is expected for older posts.
func (f *FeedClient) Post(ctx context.Context, origin, slug string) (*models.Post, error) {
	posts, err := f.All(ctx, origin)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Slug == slug {
			return &posts[i], nil
		}
	}
	return nil, fmt.Errorf("post %q not in feed for %s", slug, origin)
}

func normalizeFeedItem(item *gofeed.Item, siteImage string) models.Post {
	slug := ""
	if item.Link != "" {
		parts := strings.Split(strings.TrimSuffix(item.Link, "/"), "/")
		slug = parts[len(parts)-1]
	}

	var bodyHTML *string
	if item.Content != "" {
		content := item.Content
		bodyHTML = &content
	}

	date := ""
	if item.PublishedParsed != nil {
		date = item.PublishedParsed.UTC().Format(time.RFC3339)
	}

	var coverURL string
	if len(item.Enclosures) > 0 {
		coverURL = item.Enclosures[0].URL
	}

	return models.Post{
		Slug:               slug,
		URL:                item.Link,
		Title:              item.Title,
		Description:        item.Description,
		Excerpt:            nil,
		BodyHTML:           bodyHTML,
		ReadingTimeMinutes: ReadingTimeMinutes(RSSWordCount(item.Content)),
		AudioURL:           nil,
		Date:               date,
		Likes:              0,
		Paywall:            false,
		CoverImage:         coverImage(coverURL),
		CoverImagePalette:  models.ColorPalette{},
		Author:             feedAuthor(item),
		AuthorImage:        authorImage(siteImage),
	}
}

func feedAuthor(item *gofeed.Item) string {
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	if item.Author != nil {
		return item.Author.Name
	}
	return ""
}
