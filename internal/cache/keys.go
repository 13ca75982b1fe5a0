package cache

import "fmt"

// Key builders for the three cache namespaces. Multiple request shapes
// share one origin, so the layout is part of the store's contract:
//
//	apikey:{key}                                   access record, uncompressed
//	posts:{origin}:all                             raw batch, compressed
//	results:{origin}:posts:{sort}-{limit}-{offset} derived listing, compressed
//	results:{origin}:post:{slug}                   derived single item, compressed

func APIKeyKey(apiKey string) string {
	return "apikey:" + apiKey
}

func AllPostsKey(origin string) string {
	return "posts:" + origin + ":all"
}

func PostsViewKey(origin, sort string, limit, offset int) string {
	return fmt.Sprintf("results:%s:posts:%s-%d-%d", origin, sort, limit, offset)
}

func PostViewKey(origin, slug string) string {
	return fmt.Sprintf("results:%s:post:%s", origin, slug)
}
