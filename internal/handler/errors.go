package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/service"
)

func statusFor(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindInvalid:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders a service error as {"error", "code"}.  Causes are never
// sent to the client; the service layer has already logged them.
func writeError(c echo.Context, err error) error {
	e := service.AsError(err)
	return c.JSON(statusFor(e.Kind), echo.Map{"error": e.Message, "code": string(e.Code)})
}
