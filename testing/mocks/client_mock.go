package mocks

import (
	"context"
	"encoding/json"
	"fmt"
)

// MockRedditClient implements client.RedditClientInterface with pluggable
// function fields. URL builders fall back to a deterministic default when
// left nil.
type MockRedditClient struct {
	FetchJSONFunc    func(ctx context.Context, url string) (json.RawMessage, error)
	GetSearchURLFunc func(subreddit, query string, limit int, after string) string
	GetThreadURLFunc func(subreddit, postID string) string
	PostURLFunc      func(permalink string) string
}

func (m *MockRedditClient) FetchJSON(ctx context.Context, url string) (json.RawMessage, error) {
	return m.FetchJSONFunc(ctx, url)
}

func (m *MockRedditClient) GetSearchURL(subreddit, query string, limit int, after string) string {
	if m.GetSearchURLFunc != nil {
		return m.GetSearchURLFunc(subreddit, query, limit, after)
	}
	return fmt.Sprintf("https://example.test/r/%s/search.json?q=%s&limit=%d&after=%s", subreddit, query, limit, after)
}

func (m *MockRedditClient) GetThreadURL(subreddit, postID string) string {
	if m.GetThreadURLFunc != nil {
		return m.GetThreadURLFunc(subreddit, postID)
	}
	return fmt.Sprintf("https://example.test/r/%s/comments/%s.json", subreddit, postID)
}

func (m *MockRedditClient) PostURL(permalink string) string {
	if m.PostURLFunc != nil {
		return m.PostURLFunc(permalink)
	}
	return "https://example.test" + permalink
}
