package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/handler"
	"github.com/volunteerconnect/event-registration/internal/middleware"
	"github.com/volunteerconnect/event-registration/internal/model"
)

// RegisterAdmin registers ngo_admin-scoped endpoints under /v1.
// All routes require a valid JWT and the ngo_admin role.
func RegisterAdmin(e *echo.Echo, ev *handler.EventHandler, a *handler.AttendanceHandler, d *handler.DashboardHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleNGOAdmin),
	)

	// ---- Events ----
	g.POST("/events", ev.Create)
	g.PUT("/events/:id", ev.Update)
	g.GET("/events/:id/registrations", ev.Registrations)
	g.GET("/events/:id/audit", ev.Audit)

	// ---- Attendance ----
	g.POST("/attendance", a.Mark, limit)
	g.POST("/attendance/checkout", a.CheckOut, limit)
	g.GET("/attendance/event/:eventId", a.ListForEvent)

	// ---- Dashboard ----
	g.GET("/dashboard/admin", d.Admin)
}
