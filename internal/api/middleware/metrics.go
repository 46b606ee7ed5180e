package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/debatetab/debatetab/internal/errors"
	"github.com/debatetab/debatetab/internal/observability/metrics"
)

// unmatchedRoute labels requests that matched no registered route so
// arbitrary paths do not create new label values.
const unmatchedRoute = "unmatched"

// NewMetrics records the method, route pattern, status and latency of
// every request. A nil recorder disables the middleware.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			route := c.Path()
			if err != nil {
				// The error handler has not written the response yet.
				var he *echo.HTTPError
				switch {
				case errors.Is(err, echo.ErrNotFound):
					status = http.StatusNotFound
					route = unmatchedRoute
				case errors.As(err, &he):
					status = he.Code
				case !c.Response().Committed:
					status = http.StatusInternalServerError
				}
			}
			if route == "" {
				route = unmatchedRoute
			}
			m.RecordRequest(c.Request().Method, route, status, time.Since(start))
			return err
		}
	}
}
