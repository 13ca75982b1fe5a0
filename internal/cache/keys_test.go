package cache

import "testing"

func TestKeyNamespaces(t *testing.T) {
	origin := "https://example.substack.com"

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"api key", APIKeyKey("sk_live_abc"), "apikey:sk_live_abc"},
		{"raw batch", AllPostsKey(origin), "posts:https://example.substack.com:all"},
		{"listing view", PostsViewKey(origin, "new", 25, 0), "results:https://example.substack.com:posts:new-25-0"},
		{"listing view paged", PostsViewKey(origin, "top", 5, 10), "results:https://example.substack.com:posts:top-5-10"},
		{"post view", PostViewKey(origin, "my-slug"), "results:https://example.substack.com:post:my-slug"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s key = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
