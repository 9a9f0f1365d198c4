// Package httperr maps registry errors onto HTTP responses.
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kfcFriedChicken16/DEV-MediChain-sub001/internal/platform/ledger"
)

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrAlreadyApproved):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrCorruptBundle):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// From converts err into an echo.HTTPError. Infrastructure failures get a
// generic message; the cause stays attached for the request logger.
func From(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	code := Status(err)
	if code == http.StatusInternalServerError {
		return echo.NewHTTPError(code, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(code, err.Error())
}
