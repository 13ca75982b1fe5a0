package search

import (
	"testing"

	"github.com/substacklab/gateway/internal/models"
)

func post(slug, title, description string) models.Post {
	return models.Post{Slug: slug, Title: title, Description: description}
}

func TestRankPrefersTitleMatches(t *testing.T) {
	posts := []models.Post{
		post("a", "Cooking with cast iron", "A weekly newsletter"),
		post("b", "Weekly roundup", "All about cooking this week"),
		post("c", "Gardening notes", "Tomatoes and soil"),
	}

	ranked := Rank(posts, "cooking")
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Slug != "a" {
		t.Errorf("title match should outrank description match, got %q first", ranked[0].Slug)
	}
	if ranked[1].Slug != "b" {
		t.Errorf("description match should be second, got %q", ranked[1].Slug)
	}
}

func TestRankDropsNonMatches(t *testing.T) {
	posts := []models.Post{
		post("a", "Some title", "text"),
		post("b", "Another title", "text"),
	}
	ranked := Rank(posts, "zzzzqqqq")
	if len(ranked) != 0 {
		t.Errorf("got %d results for a non-matching query, want 0", len(ranked))
	}
}

func TestRankEmptyQueryReturnsInput(t *testing.T) {
	posts := []models.Post{post("a", "One", ""), post("b", "Two", "")}
	ranked := Rank(posts, "")
	if len(ranked) != len(posts) {
		t.Fatalf("empty query should return the batch unchanged")
	}
	for i := range posts {
		if ranked[i].Slug != posts[i].Slug {
			t.Errorf("order changed at %d: %q vs %q", i, ranked[i].Slug, posts[i].Slug)
		}
	}
}

func TestRankUsesExcerptAsTieBreaker(t *testing.T) {
	excerpt := "deep dive on sourdough starters"
	posts := []models.Post{
		{Slug: "plain", Title: "Bread"},
		{Slug: "rich", Title: "Bread", Excerpt: &excerpt},
	}
	ranked := Rank(posts, "sourdough")
	if len(ranked) == 0 {
		t.Fatal("expected at least the excerpt match")
	}
	if ranked[0].Slug != "rich" {
		t.Errorf("excerpt match should rank first, got %q", ranked[0].Slug)
	}
}
