// Package substack fetches publication content from the archive API and
// the RSS feed and normalizes both shapes into the canonical post model.
package substack

import (
	"fmt"
	"regexp"
	"strings"
)

// NormalizePublicationURL canonicalizes a publication origin: trimmed,
// lower-cased, defaulted to https, with http inputs upgraded. Returns false
// for empty input. The function is idempotent.
func NormalizePublicationURL(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return "", false
	}
	if strings.HasPrefix(clean, "https://") {
		return clean, true
	}
	if strings.HasPrefix(clean, "http://") {
		return "https://" + strings.TrimPrefix(clean, "http://"), true
	}
	return "https://" + clean, true
}

// NormalizeSlug canonicalizes a post slug: trimmed, lower-cased, leading
// slash stripped. Returns false for empty input.
func NormalizeSlug(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	clean := strings.ToLower(strings.TrimSpace(raw))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		return "", false
	}
	return clean, true
}

// ReadingTimeMinutes derives reading time from a word count at 240 words
// per minute, with a one-minute floor. A missing wordcount reads as one
// minute; only negative input yields 0.
func ReadingTimeMinutes(words int) int {
	if words < 0 {
		return 0
	}
	const wordsPerMinute = 240
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// RSSWordCount estimates the word count of feed HTML. Markup inflates the
// raw token count, so it is discounted before the reading-time math.
func RSSWordCount(html string) int {
	if html == "" {
		return 0
	}
	words := len(strings.Fields(html))
	return (words*85 + 99) / 100
}

const cdnFetchPrefix = "https://substackcdn.com/image/fetch/f_auto,q_auto:good,fl_progressive:steep/"

var (
	widthSegment = regexp.MustCompile(`/fetch/w_\d{2,4},`)
	cropSegments = regexp.MustCompile(`/fetch/[wch,]_[^/]+,?`)
	ogTransform  = "/fetch/w_1200,h_630,c_fill,"
	s3ImageHost  = "substack-post-media.s3.amazonaws.com"
	cdnHost      = "substackcdn.com"
)

// resizableURL routes S3-hosted post media through the CDN fetch template.
// URLs already on the CDN, and third-party URLs, pass through untouched.
func resizableURL(imageURL string) string {
	if strings.Contains(imageURL, cdnHost) {
		return imageURL
	}
	if !strings.Contains(imageURL, s3ImageHost) {
		return imageURL
	}
	return cdnFetchPrefix + imageURL
}

// ResizedImage rewrites imageURL to the given width via the CDN resize
// template. Returns nil for empty input.
func ResizedImage(imageURL string, width int) *string {
	if imageURL == "" {
		return nil
	}
	resizable := resizableURL(imageURL)
	var out string
	if strings.Contains(resizable, "/fetch/w_") {
		out = widthSegment.ReplaceAllString(resizable, fmt.Sprintf("/fetch/w_%d,", width))
	} else {
		out = strings.Replace(resizable, "/fetch/", fmt.Sprintf("/fetch/w_%d,", width), 1)
	}
	return &out
}

// OGImageURL derives the 1200x630 open-graph variant, replacing any
// existing width/height/crop segments.
func OGImageURL(imageURL string) *string {
	if imageURL == "" {
		return nil
	}
	resizable := resizableURL(imageURL)
	if !strings.Contains(resizable, "/fetch/") {
		return &resizable
	}
	cleaned := cropSegments.ReplaceAllString(resizable, "/fetch/")
	out := strings.Replace(cleaned, "/fetch/", ogTransform, 1)
	return &out
}

// PaletteColor formats a 3-channel RGB triple as a CSS color. Anything
// else (missing palette, wrong arity) yields nil rather than a default.
func PaletteColor(rgb []float64) *string {
	if len(rgb) != 3 {
		return nil
	}
	out := fmt.Sprintf("rgb(%d, %d, %d)", int(rgb[0]), int(rgb[1]), int(rgb[2]))
	return &out
}
