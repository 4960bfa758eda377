// internal/client/reddit_client.go
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"reddit-harvest/internal/config"
	"reddit-harvest/pkg/ratelimit"
	"reddit-harvest/pkg/utils"
)

// RedditClient composes request URLs for the public JSON endpoints and runs
// them through the retrying transport, pacing every call with the injected
// limiter.
type RedditClient struct {
	client  *utils.RetryableClient
	limiter ratelimit.Limiter
	baseURL string
	log     *slog.Logger
}

func NewRedditClient(cfg *config.Config, limiter ratelimit.Limiter, log *slog.Logger) (*RedditClient, error) {
	if cfg.RedditBaseURL == "" {
		return nil, fmt.Errorf("reddit base URL is required")
	}

	if len(cfg.ProxyURLs) > 0 {
		log.Info("using proxies", slog.Int("count", len(cfg.ProxyURLs)))
	}

	retryable, err := utils.NewRetryableClient(
		cfg.ProxyURLs,
		cfg.MaxRetries,
		cfg.RetryDelay,
		cfg.UserAgent,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("create HTTP client: %w", err)
	}

	return &RedditClient{
		client:  retryable,
		limiter: limiter,
		baseURL: cfg.RedditBaseURL,
		log:     log,
	}, nil
}

// FetchJSON waits for the limiter, then performs one GET through the retry
// loop. The returned payload is valid JSON.
func (r *RedditClient) FetchJSON(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	bodyBytes, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetchJSON request: %w", err)
	}

	return bodyBytes, nil
}

// GetSearchURL builds the subreddit-restricted search listing URL.
func (r *RedditClient) GetSearchURL(subreddit, query string, limit int, after string) string {
	baseURL := fmt.Sprintf("%s/r/%s/search.json?raw_json=1", r.baseURL, subreddit)

	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "on")
	params.Set("sort", "new")
	params.Set("t", "all")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if after != "" {
		params.Set("after", after)
	}

	return baseURL + "&" + params.Encode()
}

// GetThreadURL builds the single-thread comments URL for a post ID.
func (r *RedditClient) GetThreadURL(subreddit, postID string) string {
	return fmt.Sprintf("%s/r/%s/comments/%s.json?raw_json=1", r.baseURL, subreddit, postID)
}

// PostURL turns a listing permalink into a full post URL.
func (r *RedditClient) PostURL(permalink string) string {
	return r.baseURL + permalink
}
