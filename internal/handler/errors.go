package handler

import (
	"coursecart/internal/client"
	"coursecart/internal/repository"
	"coursecart/internal/service"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// httpError maps domain errors onto status codes. Unknown errors become 500
// with the cause kept as the internal error for the request logger.
func httpError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status, message = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrMissingPriceConfiguration),
		errors.Is(err, service.ErrSignatureInvalid):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotPurchased):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, repository.ErrProfileNotFound),
		errors.Is(err, repository.ErrOrderNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrCartNotActive):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrUpstreamProvider):
		status, message = http.StatusBadGateway, "payment provider unavailable"
	case errors.Is(err, client.ErrWebhookNotConfigured):
		status, message = http.StatusInternalServerError, "webhook not configured"
	}

	return echo.NewHTTPError(status, message).SetInternal(err)
}
