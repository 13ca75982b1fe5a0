// Package search is the in-memory fuzzy ranking boundary. It takes one
// normalized batch and returns it reordered by relevance; nothing here
// touches the cache or upstream.
package search

import (
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/substacklab/gateway/internal/models"
)

// Field weights: titles dominate, descriptions help, excerpts break ties.
const (
	titleWeight       = 4
	descriptionWeight = 2
	excerptWeight     = 1
)

// Rank returns the posts matching query, best match first. Posts that
// match on no field are dropped. The relative order of equal scores
// follows the input batch.
func Rank(posts []models.Post, query string) []models.Post {
	if query == "" {
		return posts
	}

	scores := make(map[int]int)
	accumulate(scores, titles(posts), query, titleWeight)
	accumulate(scores, descriptions(posts), query, descriptionWeight)
	accumulate(scores, excerpts(posts), query, excerptWeight)

	indexes := make([]int, 0, len(scores))
	for i := range scores {
		indexes = append(indexes, i)
	}
	sort.SliceStable(indexes, func(a, b int) bool {
		if scores[indexes[a]] != scores[indexes[b]] {
			return scores[indexes[a]] > scores[indexes[b]]
		}
		return indexes[a] < indexes[b]
	})

	ranked := make([]models.Post, 0, len(indexes))
	for _, i := range indexes {
		ranked = append(ranked, posts[i])
	}
	return ranked
}

func accumulate(scores map[int]int, fields []string, query string, weight int) {
	for _, match := range fuzzy.Find(query, fields) {
		scores[match.Index] += match.Score * weight
	}
}

func titles(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i := range posts {
		out[i] = posts[i].Title
	}
	return out
}

func descriptions(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i := range posts {
		out[i] = posts[i].Description
	}
	return out
}

func excerpts(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i := range posts {
		if posts[i].Excerpt != nil {
			out[i] = *posts[i].Excerpt
		}
	}
	return out
}
