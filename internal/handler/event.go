package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/service"
)

// EventHandler serves event browsing for everyone and event management for
// ngo_admin users.
type EventHandler struct {
	Catalog *service.EventCatalog
	Ledger  *service.RegistrationLedger
}

func NewEventHandler(catalog *service.EventCatalog, ledger *service.RegistrationLedger) *EventHandler {
	return &EventHandler{Catalog: catalog, Ledger: ledger}
}

type createEventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Location    string    `json:"location"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
}

// Create publishes a new event owned by the calling ngo_admin.
func (h *EventHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.Catalog.Create(ctx, service.CreateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		CreatedBy:   uid,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

type updateEventReq struct {
	createEventReq
	Status string `json:"status"`
}

// Update edits an event.  Capacity cannot drop below the seats already taken.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req updateEventReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.Catalog.Update(ctx, id, service.UpdateEventInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		Capacity:    req.Capacity,
		Status:      req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// List browses events.  Query: category, status, upcoming=true, limit, offset.
func (h *EventHandler) List(c echo.Context) error {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return badRequest(c, "limit must be an integer")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "offset must be an integer")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Catalog.List(ctx, service.ListEventsInput{
		Category:     c.QueryParam("category"),
		Status:       c.QueryParam("status"),
		UpcomingOnly: c.QueryParam("upcoming") == "true",
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get returns one event with its live seat count.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ev, err := h.Catalog.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev, "seats_left": ev.SeatsLeft()})
}

// Registrations lists every registration of an event for organizers.
func (h *EventHandler) Registrations(c echo.Context) error {
	id, ok := parseID(c, "id")
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

// Audit compares an event's seat counter with its active registrations.
func (h *EventHandler) Audit(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	audit, err := h.Catalog.Audit(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, audit)
}
