package middleware

// identity.go holds the context keys set by JWTAuth and the helpers that read
// them back for handlers, the rate limiter and the cache.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role.
func Role(c echo.Context) (string, bool) {
	role, ok := c.Get(ctxRole).(string)
	return role, ok && role != ""
}

// currentUserID returns the user id as a key fragment, or "anon".
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
