package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/handler"
	"github.com/volunteerconnect/event-registration/internal/middleware"
	"github.com/volunteerconnect/event-registration/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check backed by a database ping.
func RegisterRoutes(e *echo.Echo, db *database.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes.  Token operations live
// under /v1/auth; /v1/me requires a valid access token of either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// accepts a refresh token in the body or a bearer access token
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVolunteer, model.RoleNGOAdmin),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated event browsing.  cache is applied
// to both routes; pass a passthrough when caching is disabled.
func RegisterPublic(e *echo.Echo, h *handler.EventHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/events", h.List, cache)
	e.GET("/v1/events/:id", h.Get, cache)
}

// RegisterNotifications registers the inbox, open to every signed-in role.
func RegisterNotifications(e *echo.Echo, h *handler.NotificationHandler, jwtSecret string) {
	g := e.Group("/v1/notifications",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleVolunteer, model.RoleNGOAdmin),
	)
	g.GET("", h.List)
	g.PUT("/:id/read", h.MarkRead)
}
