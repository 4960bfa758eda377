// internal/handler/http/search_handler.go
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"reddit-harvest/internal/scraper"
)

type SearchHandler struct {
	svc              scraper.ScraperService
	defaultSubreddit string
}

func NewSearchHandler(svc scraper.ScraperService, defaultSubreddit string) *SearchHandler {
	return &SearchHandler{svc: svc, defaultSubreddit: defaultSubreddit}
}

// Search runs one paginated keyword search and returns the accumulated
// posts together with the stop reason.
func (h *SearchHandler) Search(c echo.Context) error {
	query := c.QueryParam("query")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing 'query' parameter")
	}

	subreddit := c.QueryParam("subreddit")
	if subreddit == "" {
		subreddit = h.defaultSubreddit
	}

	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid 'limit' parameter")
		}
		limit = v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 120*time.Second)
	defer cancel()

	startTime := time.Now()
	result := h.svc.SearchSubreddit(ctx, subreddit, query, limit)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"posts": result.Posts,
		"meta": map[string]interface{}{
			"subreddit":          result.Subreddit,
			"query":              result.Query,
			"count":              len(result.Posts),
			"stop_reason":        result.StopReason,
			"complete":           result.Complete(),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		},
	})
}
