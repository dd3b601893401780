package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// probe endpoints are hit every few seconds and would drown the api series
var skippedRoutes = map[string]bool{
	"/metrics": true,
	"/health":  true,
	"/ready":   true,
}

// Middleware returns an Echo middleware that records HTTP request metrics.
func Middleware(m *Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := routeLabel(c)
			if skippedRoutes[route] {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			// the error handler has not run yet, take the status from the error
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}

			m.RecordHTTPRequest(c.Request().Method, route, strconv.Itoa(status), time.Since(start).Seconds())
			return err
		}
	}
}

// routeLabel is the matched route pattern, e.g. /api/v1/congregations/:slug,
// so slugs and ids never become label values. unmatched requests share one label.
func routeLabel(c echo.Context) string {
	if path := c.Path(); path != "" {
		return path
	}
	return "unmatched"
}
