// internal/router/router.go
package router

import (
	"github.com/labstack/echo/v4"

	"reddit-harvest/internal/handler/http"
	"reddit-harvest/internal/scraper"
)

func NewRouter(e *echo.Echo, svc scraper.ScraperService, defaultSubreddit string) {
	sch := http.NewSearchHandler(svc, defaultSubreddit)
	thr := http.NewThreadHandler(svc, defaultSubreddit)

	e.GET("/search", sch.Search)
	e.GET("/thread", thr.GetThread)
}
