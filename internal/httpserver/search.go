package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/inventory_api/internal/es"
	"github.com/Skotchmaster/inventory_api/internal/logging"
	"github.com/Skotchmaster/inventory_api/internal/util"
)

type ProductSearcher interface {
	Search(ctx context.Context, query string, from, size int) (*es.SearchResult, error)
}

// SearchHTTP serves full-text search. A nil Index means search is disabled.
type SearchHTTP struct {
	Index ProductSearcher
}

func (h *SearchHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "search")

	if h.Index == nil {
		l.Warn("search_failed", "status", http.StatusServiceUnavailable, "reason", "search is not configured")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search is not available")
	}

	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		l.Warn("search_failed", "status", http.StatusBadRequest, "reason", "empty query")
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	res, err := h.Index.Search(ctx, q, from, limit)
	if err != nil {
		l.Error("search_failed", "status", http.StatusBadGateway, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search backend error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": res.Items,
		"meta": util.Meta(page, from, limit, res.Total),
	})
}
