package posts

import (
	"time"

	"github.com/substacklab/gateway/internal/models"
)

// Response assembly. Wraps resolved data with retrieval metadata without
// touching the underlying posts.

type ListMetadata struct {
	Timestamp      int64  `json:"timestamp"`
	Source         Source `json:"source"`
	PublicationURL string `json:"publication_url"`
	PostsCount     int    `json:"posts_count"`
	Limit          int    `json:"limit"`
	Offset         int    `json:"offset"`
}

type ListResponse struct {
	Data     []models.Post `json:"data"`
	Metadata ListMetadata  `json:"metadata"`
}

type ItemMetadata struct {
	Timestamp      int64  `json:"timestamp"`
	Source         Source `json:"source"`
	PublicationURL string `json:"publication_url"`
}

type ItemResponse struct {
	Data     models.Post  `json:"data"`
	Metadata ItemMetadata `json:"metadata"`
}

func NewListResponse(result *ListResult, limit, offset int) ListResponse {
	return ListResponse{
		Data: result.Posts,
		Metadata: ListMetadata{
			Timestamp:      time.Now().UnixMilli(),
			Source:         result.Source,
			PublicationURL: result.Origin,
			PostsCount:     len(result.Posts),
			Limit:          limit,
			Offset:         offset,
		},
	}
}

func NewItemResponse(result *ItemResult) ItemResponse {
	return ItemResponse{
		Data: result.Post,
		Metadata: ItemMetadata{
			Timestamp:      time.Now().UnixMilli(),
			Source:         result.Source,
			PublicationURL: result.Origin,
		},
	}
}
