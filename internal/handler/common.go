// Package handler exposes the HTTP handlers for the public, volunteer and
// ngo_admin endpoints.  Handlers parse and validate transport input, call the
// service layer and translate service errors with writeError.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/middleware"
)

// requestTimeout bounds the database work behind a single request.
const requestTimeout = 5 * time.Second

var errNoIdentity = errors.New("invalid user_id in context")

// getUserID returns the authenticated user id placed by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errNoIdentity
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter, returning def when the
// parameter is absent.
func queryInt(c echo.Context, name string, def int) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "INVALID_ARGUMENT"})
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "UNAUTHORIZED"})
}
