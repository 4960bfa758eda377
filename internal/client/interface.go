// internal/client/interface.go
package client

import (
	"context"
	"encoding/json"
)

type RedditClientInterface interface {
	FetchJSON(ctx context.Context, url string) (json.RawMessage, error)
	GetSearchURL(subreddit, query string, limit int, after string) string
	GetThreadURL(subreddit, postID string) string
	PostURL(permalink string) string
}
