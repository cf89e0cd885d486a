package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/scriptreach/scriptreach/internal/gateway"
	"github.com/scriptreach/scriptreach/internal/repository"
)

// mapError translates the sentinel errors of the gateway and repository
// layers into consistent JSON responses. Unknown errors become a 502: this
// process is a client of the remote gateway, so "something broke" almost
// always means "the upstream call failed".
func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, gateway.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, gateway.ErrEmailNotConfirmed):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "email not confirmed"})
	case errors.Is(err, gateway.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	case errors.Is(err, gateway.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many attempts, try again later"})
	case errors.Is(err, gateway.ErrUnauthorized), errors.Is(err, repository.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not signed in"})
	case errors.Is(err, gateway.ErrForbidden), errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, gateway.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, gateway.ErrConflict), errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, gateway.ErrUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "backend unavailable, try again"})
	}
	return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream request failed"})
}
