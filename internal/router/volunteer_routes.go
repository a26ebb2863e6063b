package router

import (
	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/handler"
	"github.com/volunteerconnect/event-registration/internal/middleware"
	"github.com/volunteerconnect/event-registration/internal/model"
)

// RegisterVolunteer registers volunteer-scoped endpoints under /v1.  All
// routes require a valid JWT and the volunteer role.  limit guards the
// writes that touch the seat counter.
func RegisterVolunteer(e *echo.Echo, r *handler.RegistrationHandler, d *handler.DashboardHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVolunteer),
	)
	g.POST("/registrations", r.Register, limit)
	g.PUT("/registrations/:id/cancel", r.Cancel, limit)
	g.GET("/registrations/my", r.Mine)

	g.GET("/dashboard/volunteer", d.Volunteer)
}
