package scraper_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reddit-harvest/internal/models"
	"reddit-harvest/internal/scraper"
	"reddit-harvest/testing/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func genPosts(prefix string, n int) []models.Post {
	posts := make([]models.Post, 0, n)
	for i := 0; i < n; i++ {
		posts = append(posts, models.Post{
			ID:    fmt.Sprintf("%s_%03d", prefix, i),
			Title: fmt.Sprintf("%s title %d", prefix, i),
		})
	}
	return posts
}

func newService(client *mocks.MockRedditClient, parser *mocks.MockParser) scraper.ScraperService {
	return scraper.NewScraperService(client, parser, nil, discardLogger())
}

func TestSearchStopsAfterNullCursor(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		return json.RawMessage(`{}`), nil
	}

	pages := []struct {
		posts []models.Post
		after string
	}{
		{genPosts("p1", 3), "cursor2"},
		{genPosts("p2", 3), "cursor3"},
		{genPosts("p3", 1), ""},
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		page := pages[fetchCount-1]
		return page.posts, page.after, nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "pharmacist", 0)

	assert.Equal(t, 3, fetchCount)
	assert.Len(t, result.Posts, 7)
	assert.Equal(t, models.StopReasonExhausted, result.StopReason)
	assert.True(t, result.Complete())
}

func TestSearchLimitTruncation(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		return genPosts(fmt.Sprintf("page%d", fetchCount), 100), fmt.Sprintf("cursor%d", fetchCount+1), nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "pharmacy", 150)

	// The second page overshoots to 200 before the post-page check trims.
	assert.Equal(t, 2, fetchCount)
	require.Len(t, result.Posts, 150)
	assert.Equal(t, models.StopReasonLimit, result.StopReason)

	// Ingestion order preserved through truncation.
	assert.Equal(t, "page1_000", result.Posts[0].ID)
	assert.Equal(t, "page1_099", result.Posts[99].ID)
	assert.Equal(t, "page2_000", result.Posts[100].ID)
	assert.Equal(t, "page2_049", result.Posts[149].ID)
}

func TestSearchDeduplicatesByID(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		if fetchCount == 1 {
			return []models.Post{{ID: "a"}, {ID: "b"}}, "next", nil
		}
		return []models.Post{{ID: "b"}, {ID: "c"}}, "", nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "pharmacist", 0)

	require.Len(t, result.Posts, 3)
	assert.Equal(t, "a", result.Posts[0].ID)
	assert.Equal(t, "b", result.Posts[1].ID)
	assert.Equal(t, "c", result.Posts[2].ID)
}

func TestSearchKeepsPartialResultsOnFetchFailure(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		if fetchCount > 1 {
			return nil, errors.New("connection reset")
		}
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		return genPosts("p1", 5), "cursor2", nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "pharmacist", 0)

	assert.Len(t, result.Posts, 5)
	assert.Equal(t, models.StopReasonFetch, result.StopReason)
	assert.False(t, result.Complete())
}

func TestSearchCanceledMidFetchIsMarkedCanceled(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	ctx, cancel := context.WithCancel(context.Background())
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		cancel()
		return nil, ctx.Err()
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		t.Fatal("parser should not run after a canceled fetch")
		return nil, "", nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(ctx, "ausjdocs", "pharmacist", 0)

	assert.Empty(t, result.Posts)
	assert.Equal(t, models.StopReasonCanceled, result.StopReason)
	assert.False(t, result.Complete())
}

func TestSearchCanceledMidParseIsMarkedCanceled(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	ctx, cancel := context.WithCancel(context.Background())
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		cancel()
		return nil, "", ctx.Err()
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(ctx, "ausjdocs", "pharmacist", 0)

	assert.Equal(t, models.StopReasonCanceled, result.StopReason)
	assert.False(t, result.Complete())
}

func TestSearchPageCapIsMarkedDistinctly(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		return json.RawMessage(`{}`), nil
	}
	// Every page yields fresh posts and a cursor, so only the page cap can
	// stop the loop: limit 100 allows (100/100+1)*2 = 4 pages.
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		return genPosts(fmt.Sprintf("page%d", fetchCount), 10), fmt.Sprintf("cursor%d", fetchCount+1), nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "pharmacist", 100)

	assert.Equal(t, 4, fetchCount)
	assert.Len(t, result.Posts, 40)
	assert.Equal(t, models.StopReasonMaxPages, result.StopReason)
	assert.True(t, result.Complete())
}

func TestSearchStopsOnEmptyPage(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	fetchCount := 0
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		fetchCount++
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		// A cursor came back but the page itself is empty.
		return nil, "cursor2", nil
	}

	svc := newService(mockClient, mockParser)
	result := svc.SearchSubreddit(context.Background(), "ausjdocs", "nothing", 0)

	assert.Equal(t, 1, fetchCount)
	assert.Empty(t, result.Posts)
	assert.Equal(t, models.StopReasonExhausted, result.StopReason)
}

func TestHarvestSearchCrossTermDedup(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	var lastQuery string
	mockClient.GetSearchURLFunc = func(subreddit, query string, limit int, after string) string {
		lastQuery = query
		return "https://example.test/search"
	}
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		switch lastQuery {
		case "pharmacist":
			return []models.Post{{ID: "a"}, {ID: "b"}}, "", nil
		default:
			return []models.Post{{ID: "b"}, {ID: "c"}}, "", nil
		}
	}

	svc := newService(mockClient, mockParser)
	posts, report := svc.HarvestSearch(context.Background(), "ausjdocs", []string{"pharmacist", "pharmacy"}, 0)

	require.Len(t, posts, 3)
	assert.Equal(t, 3, report.UniquePosts)
	assert.True(t, report.Complete)
	assert.NotEmpty(t, report.RunID)

	require.Len(t, report.Terms, 2)
	assert.Equal(t, 2, report.Terms[0].Found)
	assert.Equal(t, 2, report.Terms[0].New)
	assert.Equal(t, 2, report.Terms[1].Found)
	assert.Equal(t, 1, report.Terms[1].New)
}

func TestHarvestSearchMarksIncompleteRuns(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	var lastQuery string
	mockClient.GetSearchURLFunc = func(subreddit, query string, limit int, after string) string {
		lastQuery = query
		return "https://example.test/search"
	}
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		if lastQuery == "flaky" {
			return nil, errors.New("timeout")
		}
		return json.RawMessage(`{}`), nil
	}
	mockParser.ParseSearchFunc = func(ctx context.Context, data json.RawMessage) ([]models.Post, string, error) {
		return []models.Post{{ID: "a"}}, "", nil
	}

	svc := newService(mockClient, mockParser)
	posts, report := svc.HarvestSearch(context.Background(), "ausjdocs", []string{"good", "flaky"}, 0)

	// The bad term contributes nothing but the run still returns the rest.
	assert.Len(t, posts, 1)
	assert.False(t, report.Complete)
	require.Len(t, report.Terms, 2)
	assert.Equal(t, models.StopReasonFetch, report.Terms[1].StopReason)
}

func TestArchiveThread(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		return json.RawMessage(`[{"data":{"children":[]}},{"data":{"children":[]}}]`), nil
	}
	mockParser.ParseThreadFunc = func(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error) {
		require.NotNil(t, commentData)
		return models.ThreadArchive{
			PostID:   "1owkkre",
			PostInfo: models.PostInfo{Title: "feedback"},
			Comments: []models.Comment{{Author: "alice"}},
		}, nil
	}

	svc := newService(mockClient, mockParser)
	archive, err := svc.ArchiveThread(context.Background(), "ausjdocs", "1owkkre")
	require.NoError(t, err)

	assert.Equal(t, "1owkkre", archive.PostID)
	assert.Len(t, archive.Comments, 1)
}

func TestArchiveThreadWithoutCommentBlock(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		return json.RawMessage(`[{"data":{"children":[]}}]`), nil
	}
	mockParser.ParseThreadFunc = func(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error) {
		assert.Nil(t, commentData)
		return models.ThreadArchive{}, nil
	}

	svc := newService(mockClient, mockParser)
	archive, err := svc.ArchiveThread(context.Background(), "ausjdocs", "abc")
	require.NoError(t, err)

	// Post ID is backfilled when the payload lacks one.
	assert.Equal(t, "abc", archive.PostID)
	assert.Empty(t, archive.Comments)
}

func TestArchiveThreadsSkipsFailures(t *testing.T) {
	mockClient := &mocks.MockRedditClient{}
	mockParser := &mocks.MockParser{}

	mockClient.GetThreadURLFunc = func(subreddit, postID string) string {
		return postID
	}
	mockClient.FetchJSONFunc = func(ctx context.Context, url string) (json.RawMessage, error) {
		if url == "bad" {
			return nil, errors.New("status 404")
		}
		return json.RawMessage(`[{"data":{"children":[]}},{"data":{"children":[]}}]`), nil
	}
	mockParser.ParseThreadFunc = func(ctx context.Context, postData, commentData json.RawMessage) (models.ThreadArchive, error) {
		return models.ThreadArchive{PostInfo: models.PostInfo{Title: "ok"}}, nil
	}

	svc := newService(mockClient, mockParser)
	archives := svc.ArchiveThreads(context.Background(), "ausjdocs", []string{"good1", "bad", "good2"})

	require.Len(t, archives, 2)
	assert.Contains(t, archives, "good1")
	assert.Contains(t, archives, "good2")
	assert.NotContains(t, archives, "bad")
}
