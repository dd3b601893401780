package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/infrastructure/auth"
)

// AdminTokenHeader carries the operator token for congregation provisioning.
const AdminTokenHeader = "X-Admin-Token"

// context keys for the authenticated panel session
const (
	congregationIDKey   = "panel_congregation_id"
	congregationSlugKey = "panel_congregation_slug"
)

// TokenValidator validates panel session tokens.
type TokenValidator interface {
	ValidateToken(token string) (*auth.PanelClaims, error)
}

// PanelAuthMiddleware requires a valid panel bearer token and scopes the
// request to the congregation it was issued for.
func PanelAuthMiddleware(validator TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			claims, err := validator.ValidateToken(header)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(congregationIDKey, claims.CongregationID())
			c.Set(congregationSlugKey, claims.Slug)
			return next(c)
		}
	}
}

// AdminAuthMiddleware requires the configured admin token.
// with no token configured every request is refused.
func AdminAuthMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return echo.NewHTTPError(http.StatusForbidden, "admin endpoints are disabled")
			}
			if !auth.TokenMatches(token, c.Request().Header.Get(AdminTokenHeader)) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid admin token")
			}
			return next(c)
		}
	}
}

// PanelCongregationID returns the congregation of the authenticated panel session.
// returns empty string outside panel routes.
func PanelCongregationID(c echo.Context) string {
	if v, ok := c.Get(congregationIDKey).(string); ok {
		return v
	}
	return ""
}

// PanelSlug returns the congregation slug of the authenticated panel session.
func PanelSlug(c echo.Context) string {
	if v, ok := c.Get(congregationSlugKey).(string); ok {
		return v
	}
	return ""
}
