// internal/scraper/service.go
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"reddit-harvest/internal/client"
	"reddit-harvest/internal/models"
	"reddit-harvest/internal/parser"
	"reddit-harvest/pkg/ratelimit"
)

// apiPageSize is the maximum listing page size the API allows.
const apiPageSize = 100

// ScraperService drives the paginated search and thread archiving loops.
// All operations are best-effort: a failed page fetch terminates the
// enclosing loop early and whatever was accumulated is still returned.
type ScraperService interface {
	SearchSubreddit(ctx context.Context, subreddit, query string, limit int) models.SearchResult
	HarvestSearch(ctx context.Context, subreddit string, terms []string, limit int) ([]models.Post, models.HarvestReport)
	ArchiveThread(ctx context.Context, subreddit, postID string) (models.ThreadArchive, error)
	ArchiveThreads(ctx context.Context, subreddit string, postIDs []string) map[string]models.ThreadArchive
}

type scraperService struct {
	client      client.RedditClientInterface
	parser      parser.ParserInterface
	termLimiter ratelimit.Limiter
	log         *slog.Logger
}

// NewScraperService builds the service. termLimiter paces the transitions
// between search terms; per-request pacing lives inside the client.
func NewScraperService(client client.RedditClientInterface, parser parser.ParserInterface, termLimiter ratelimit.Limiter, log *slog.Logger) ScraperService {
	if termLimiter == nil {
		termLimiter = ratelimit.Nop{}
	}
	return &scraperService{
		client:      client,
		parser:      parser,
		termLimiter: termLimiter,
		log:         log,
	}
}

// stopReasonFor separates a genuine fetch/parse failure from one induced by
// cancellation of the surrounding context.
func stopReasonFor(ctx context.Context) models.StopReason {
	if ctx.Err() != nil {
		return models.StopReasonCanceled
	}
	return models.StopReasonFetch
}

// SearchSubreddit pages through search results for one query, following the
// continuation cursor until exhaustion, failure, or the limit. Posts are
// deduplicated by ID as they arrive. limit <= 0 means no limit. The limit
// is only re-checked after a full page, so a page may overshoot before the
// final truncation.
func (s *scraperService) SearchSubreddit(ctx context.Context, subreddit, query string, limit int) models.SearchResult {
	result := models.SearchResult{
		Subreddit:  subreddit,
		Query:      query,
		StopReason: models.StopReasonExhausted,
	}

	apiLimit := apiPageSize
	if limit > 0 && limit < apiLimit {
		apiLimit = limit
	}

	maxPages := 1000
	if limit > 0 {
		maxPages = (limit/apiPageSize + 1) * 2
	}

	seen := make(map[string]bool)
	after := ""

	s.log.Info("search start",
		slog.String("subreddit", subreddit),
		slog.String("query", query),
		slog.Int("limit", limit),
	)

	pageCount := 0
	for ; pageCount < maxPages; pageCount++ {
		if ctx.Err() != nil {
			result.StopReason = models.StopReasonCanceled
			break
		}

		apiURL := s.client.GetSearchURL(subreddit, query, apiLimit, after)

		data, err := s.client.FetchJSON(ctx, apiURL)
		if err != nil {
			s.log.Error("search page fetch failed, keeping partial results",
				slog.String("query", query),
				slog.Int("page", pageCount+1),
				slog.String("err", err.Error()),
			)
			result.StopReason = stopReasonFor(ctx)
			break
		}

		pagePosts, nextAfter, err := s.parser.ParseSearch(ctx, data)
		if err != nil {
			s.log.Error("search page parse failed, keeping partial results",
				slog.String("query", query),
				slog.Int("page", pageCount+1),
				slog.String("err", err.Error()),
			)
			result.StopReason = stopReasonFor(ctx)
			break
		}

		if len(pagePosts) == 0 {
			s.log.Info("no more posts", slog.String("query", query))
			break
		}

		for _, post := range pagePosts {
			if seen[post.ID] {
				continue
			}
			seen[post.ID] = true
			result.Posts = append(result.Posts, post)
		}

		s.log.Info("search page done",
			slog.String("query", query),
			slog.Int("page", pageCount+1),
			slog.Int("total", len(result.Posts)),
		)

		if limit > 0 && len(result.Posts) >= limit {
			result.StopReason = models.StopReasonLimit
			break
		}

		if nextAfter == "" {
			s.log.Info("end of results", slog.String("query", query))
			break
		}

		after = nextAfter
	}

	if pageCount == maxPages {
		s.log.Warn("page cap reached before listing exhausted",
			slog.String("query", query),
			slog.Int("max_pages", maxPages),
		)
		result.StopReason = models.StopReasonMaxPages
	}

	if limit > 0 && len(result.Posts) > limit {
		result.Posts = result.Posts[:limit]
	}

	s.log.Info("search done",
		slog.String("query", query),
		slog.Int("posts", len(result.Posts)),
		slog.String("stop_reason", string(result.StopReason)),
	)

	return result
}

// HarvestSearch runs one search per term and accumulates the union,
// deduplicated by post ID with first occurrence winning.
func (s *scraperService) HarvestSearch(ctx context.Context, subreddit string, terms []string, limit int) ([]models.Post, models.HarvestReport) {
	report := models.HarvestReport{
		RunID:     uuid.New().String(),
		Subreddit: subreddit,
		Complete:  true,
	}

	var all []models.Post
	seen := make(map[string]bool)

	for _, term := range terms {
		if err := s.termLimiter.Wait(ctx); err != nil {
			report.Complete = false
			break
		}

		result := s.SearchSubreddit(ctx, subreddit, term, limit)

		added := 0
		for _, post := range result.Posts {
			if seen[post.ID] {
				continue
			}
			seen[post.ID] = true
			all = append(all, post)
			added++
		}

		if !result.Complete() {
			report.Complete = false
		}

		report.Terms = append(report.Terms, models.TermCount{
			Query:      term,
			Found:      len(result.Posts),
			New:        added,
			StopReason: result.StopReason,
		})

		if ctx.Err() != nil {
			report.Complete = false
			break
		}
	}

	report.UniquePosts = len(all)

	s.log.Info("harvest done",
		slog.String("run_id", report.RunID),
		slog.Int("terms", len(report.Terms)),
		slog.Int("unique_posts", report.UniquePosts),
		slog.Bool("complete", report.Complete),
	)

	return all, report
}

// ArchiveThread fetches one thread and flattens its comment tree. A payload
// without a comment block yields an archive with no comments.
func (s *scraperService) ArchiveThread(ctx context.Context, subreddit, postID string) (models.ThreadArchive, error) {
	apiURL := s.client.GetThreadURL(subreddit, postID)

	data, err := s.client.FetchJSON(ctx, apiURL)
	if err != nil {
		return models.ThreadArchive{}, fmt.Errorf("fetch thread: %w", err)
	}

	var blocks []json.RawMessage
	if err := json.Unmarshal(data, &blocks); err != nil {
		return models.ThreadArchive{}, fmt.Errorf("invalid thread JSON format: %w", err)
	}
	if len(blocks) == 0 {
		return models.ThreadArchive{}, fmt.Errorf("thread payload is empty")
	}

	var commentBlock json.RawMessage
	if len(blocks) > 1 {
		commentBlock = blocks[1]
	} else {
		s.log.Warn("thread has no comment block", slog.String("post_id", postID))
	}

	archive, err := s.parser.ParseThread(ctx, blocks[0], commentBlock)
	if err != nil {
		return archive, fmt.Errorf("parse thread: %w", err)
	}
	if archive.PostID == "" {
		archive.PostID = postID
	}

	s.log.Info("thread archived",
		slog.String("post_id", postID),
		slog.Int("comments", len(archive.Comments)),
	)

	return archive, nil
}

// ArchiveThreads archives each post in turn. Failures are logged and the
// post skipped; the map holds only the successes.
func (s *scraperService) ArchiveThreads(ctx context.Context, subreddit string, postIDs []string) map[string]models.ThreadArchive {
	archives := make(map[string]models.ThreadArchive, len(postIDs))

	for _, postID := range postIDs {
		if ctx.Err() != nil {
			s.log.Warn("thread archiving canceled", slog.Int("done", len(archives)))
			break
		}

		archive, err := s.ArchiveThread(ctx, subreddit, postID)
		if err != nil {
			s.log.Error("skipping thread",
				slog.String("post_id", postID),
				slog.String("err", err.Error()),
			)
			continue
		}

		archives[postID] = archive
	}

	return archives
}
