package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/volunteerconnect/event-registration/internal/service"
)

// NotificationHandler exposes the caller's notification inbox.
type NotificationHandler struct {
	Inbox *service.Inbox
}

func NewNotificationHandler(inbox *service.Inbox) *NotificationHandler {
	return &NotificationHandler{Inbox: inbox}
}

// List returns the newest notifications.  Query: limit.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	limit, ok := queryInt(c, "limit", service.DefaultInboxLimit)
	if !ok {
		return badRequest(c, "limit must be an integer")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.Inbox.List(ctx, uid, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c, "unauthorized")
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid notification id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	n, err := h.Inbox.MarkRead(ctx, id, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}
