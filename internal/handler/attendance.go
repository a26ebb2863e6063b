package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/service"
)

// AttendanceHandler lets organizers verify who turned up.
type AttendanceHandler struct {
	Ledger *service.AttendanceLedger
}

func NewAttendanceHandler(ledger *service.AttendanceLedger) *AttendanceHandler {
	return &AttendanceHandler{Ledger: ledger}
}

type markAttendanceReq struct {
	EventID uint64 `json:"event_id"`
	UserID  uint64 `json:"user_id"`
	Status  string `json:"status"`
}

type checkOutReq struct {
	EventID uint64 `json:"event_id"`
	UserID  uint64 `json:"user_id"`
}

// Mark records present or absent for a registered volunteer.
func (h *AttendanceHandler) Mark(c echo.Context) error {
	verifier, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	var req markAttendanceReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	status, err := model.ParseAttendanceStatus(req.Status)
	if err != nil {
		return badRequest(c, "status must be present or absent")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rec, err := h.Ledger.MarkAttendance(ctx, service.MarkAttendanceInput{
		EventID:    req.EventID,
		UserID:     req.UserID,
		Status:     status,
		VerifierID: verifier,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// CheckOut stamps the departure time on a present attendance record.
func (h *AttendanceHandler) CheckOut(c echo.Context) error {
	verifier, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	var req checkOutReq
	if err := c.Bind(&req); err != nil || req.EventID == 0 || req.UserID == 0 {
		return badRequest(c, "event_id and user_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	rec, err := h.Ledger.CheckOut(ctx, req.EventID, req.UserID, verifier)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ListForEvent returns the attendance sheet of an event.
func (h *AttendanceHandler) ListForEvent(c echo.Context) error {
	id, ok := parseID(c, "eventId")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Ledger.ListForEvent(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
