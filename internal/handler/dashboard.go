package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/service"
)

// DashboardHandler serves the read-only statistics snapshots.
type DashboardHandler struct {
	Stats *service.StatsAggregator
}

func NewDashboardHandler(stats *service.StatsAggregator) *DashboardHandler {
	return &DashboardHandler{Stats: stats}
}

// Admin returns platform-wide totals.
func (h *DashboardHandler) Admin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	snap, err := h.Stats.AdminSnapshot(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// Volunteer returns the caller's own totals.
func (h *DashboardHandler) Volunteer(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	snap, err := h.Stats.VolunteerSnapshot(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}
