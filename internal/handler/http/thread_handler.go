// internal/handler/http/thread_handler.go
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"reddit-harvest/internal/scraper"
)

type ThreadHandler struct {
	svc              scraper.ScraperService
	defaultSubreddit string
}

func NewThreadHandler(svc scraper.ScraperService, defaultSubreddit string) *ThreadHandler {
	return &ThreadHandler{svc: svc, defaultSubreddit: defaultSubreddit}
}

// GetThread fetches one post with its flattened comment sequence.
func (h *ThreadHandler) GetThread(c echo.Context) error {
	postID := c.QueryParam("id")
	if postID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing 'id' parameter")
	}

	subreddit := c.QueryParam("subreddit")
	if subreddit == "" {
		subreddit = h.defaultSubreddit
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 60*time.Second)
	defer cancel()

	archive, err := h.svc.ArchiveThread(ctx, subreddit, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("thread error: %v", err))
	}

	return c.JSON(http.StatusOK, archive)
}
