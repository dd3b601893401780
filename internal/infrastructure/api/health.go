package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthChecker is a dependency probed by the readiness endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// RegisterHealthRoutes registers health check endpoints.
// these are public and don't require authentication.
func RegisterHealthRoutes(e *echo.Echo, checks map[string]HealthChecker) {
	e.GET("/health", healthHandler)
	e.GET("/ready", readyHandler(checks))
}

// healthHandler returns the basic health status.
// used for liveness probes.
func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "yujo",
	})
}

// readyHandler probes every dependency. any failure answers 503.
func readyHandler(checks map[string]HealthChecker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readyTimeout)
		defer cancel()

		status, code := "ready", http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.HealthCheck(ctx); err != nil {
				results[name] = err.Error()
				status, code = "unavailable", http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		return c.JSON(code, HealthResponse{
			Status:  status,
			Service: "yujo",
			Checks:  results,
		})
	}
}
