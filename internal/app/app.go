// internal/app/app.go
package app

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"reddit-harvest/internal/client"
	"reddit-harvest/internal/config"
	"reddit-harvest/internal/parser"
	"reddit-harvest/internal/router"
	"reddit-harvest/internal/scraper"
	"reddit-harvest/pkg/ratelimit"
)

type App struct {
	Config  *config.Config
	Echo    *echo.Echo
	Service scraper.ScraperService
	Log     *slog.Logger
}

// Initialize wires the fetch stack behind the HTTP API. The process-wide
// logger is owned here and handed down to every component.
func Initialize(log *slog.Logger) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	limiter := ratelimit.NewIntervalLimiter(cfg.RateLimitDelay)

	redditClient, err := client.NewRedditClient(cfg, limiter, log)
	if err != nil {
		return nil, fmt.Errorf("create Reddit client: %w", err)
	}

	redditParser := parser.NewRedditParser(cfg.ExcludedAuthors, cfg.MaxCommentDepth, redditClient.PostURL)
	termLimiter := ratelimit.NewIntervalLimiter(cfg.TermDelay)
	svc := scraper.NewScraperService(redditClient, redditParser, termLimiter, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	router.NewRouter(e, svc, cfg.Subreddit)

	return &App{
		Config:  cfg,
		Echo:    e,
		Service: svc,
		Log:     log,
	}, nil
}

func (a *App) Start() error {
	port := a.Config.ServerPort
	if port == "" {
		port = "8080"
	}

	a.Echo.Server.ReadTimeout = a.Config.ReadTimeout
	a.Echo.Server.WriteTimeout = a.Config.WriteTimeout

	return a.Echo.Start(":" + port)
}
