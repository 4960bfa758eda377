// cmd/harvester/main.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"reddit-harvest/internal/client"
	"reddit-harvest/internal/config"
	"reddit-harvest/internal/export"
	"reddit-harvest/internal/parser"
	"reddit-harvest/internal/scraper"
	"reddit-harvest/pkg/ratelimit"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(log); err != nil {
		log.Error("harvest failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.NewIntervalLimiter(cfg.RateLimitDelay)

	redditClient, err := client.NewRedditClient(cfg, limiter, log)
	if err != nil {
		return fmt.Errorf("create Reddit client: %w", err)
	}

	redditParser := parser.NewRedditParser(cfg.ExcludedAuthors, cfg.MaxCommentDepth, redditClient.PostURL)
	termLimiter := ratelimit.NewIntervalLimiter(cfg.TermDelay)
	svc := scraper.NewScraperService(redditClient, redditParser, termLimiter, log)

	exporter, err := export.NewExporter(cfg.OutputDir, log)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}

	log.Info("harvest start",
		slog.String("subreddit", cfg.Subreddit),
		slog.Int("terms", len(cfg.SearchTerms)),
		slog.Int("limit", cfg.SearchLimit),
	)

	posts, report := svc.HarvestSearch(ctx, cfg.Subreddit, cfg.SearchTerms, cfg.SearchLimit)

	// Fetch failures above are tolerated; only failing to persist what we
	// collected aborts the run.
	prefix := fmt.Sprintf("%s_posts", cfg.Subreddit)
	if err := exporter.WriteJSON(prefix+".json", posts); err != nil {
		return err
	}
	if err := exporter.WritePostsCSV(prefix+".csv", posts); err != nil {
		return err
	}
	if err := exporter.WriteJSON(prefix+"_report.json", report); err != nil {
		return err
	}

	if len(cfg.ThreadIDs) > 0 {
		log.Info("archiving threads", slog.Int("count", len(cfg.ThreadIDs)))

		archives := svc.ArchiveThreads(ctx, cfg.Subreddit, cfg.ThreadIDs)

		name := fmt.Sprintf("%s_thread_comments.json", cfg.Subreddit)
		if err := exporter.WriteJSON(name, archives); err != nil {
			return err
		}

		totalComments := 0
		for _, archive := range archives {
			totalComments += len(archive.Comments)
		}
		log.Info("threads archived",
			slog.Int("threads", len(archives)),
			slog.Int("comments", totalComments),
		)
	}

	log.Info("harvest complete",
		slog.String("run_id", report.RunID),
		slog.Int("unique_posts", report.UniquePosts),
		slog.Bool("complete", report.Complete),
	)

	return nil
}
