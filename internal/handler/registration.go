package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/service"
)

// RegistrationHandler serves the volunteer side of the registration ledger.
type RegistrationHandler struct {
	Ledger *service.RegistrationLedger
}

func NewRegistrationHandler(ledger *service.RegistrationLedger) *RegistrationHandler {
	return &RegistrationHandler{Ledger: ledger}
}

type registerEventReq struct {
	EventID uint64 `json:"event_id"`
}

// Register takes a seat on an event for the calling volunteer.
func (h *RegistrationHandler) Register(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	var req registerEventReq
	if err := c.Bind(&req); err != nil || req.EventID == 0 {
		return badRequest(c, "event_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	reg, err := h.Ledger.Register(ctx, uid, req.EventID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, reg)
}

// Cancel cancels one of the caller's registrations and frees its seat.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid registration id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	reg, err := h.Ledger.Cancel(ctx, id, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Mine lists the caller's registrations, newest first, with event details.
func (h *RegistrationHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Ledger.ListForUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
