package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/yujo/internal/application"
	"github.com/joacominatel/yujo/internal/domain"
)

// fieldErrors carries validation messages through echo.HTTPError.
type fieldErrors map[string]string

// mapDomainError maps domain/application errors to HTTP errors.
func mapDomainError(err error) *echo.HTTPError {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, fieldErrors(verr.Fields))
	case errors.Is(err, domain.ErrStoreUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "report store unavailable, try again later").SetInternal(err)
	case errors.Is(err, domain.ErrInvalidWeek),
		errors.Is(err, domain.ErrInvalidMetric),
		errors.Is(err, application.ErrInsecureWebhookURL),
		errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid congregation or password")
	case errors.Is(err, domain.ErrCongregationClosed):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrCongregationNotFound),
		errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrSlugAlreadyExists),
		errors.Is(err, domain.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
