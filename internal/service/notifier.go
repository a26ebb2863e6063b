package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/repository"
)

// Payload is the data a notification is rendered from.
type Payload struct {
	EventID          uint64    `json:"event_id"`
	EventTitle       string    `json:"event_title"`
	RegistrationID   uint64    `json:"registration_id,omitempty"`
	AttendanceStatus string    `json:"attendance_status,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Notifier delivers a domain notification to a user.  Delivery is best
// effort: ledgers log a failed Notify and carry on.
type Notifier interface {
	Notify(ctx context.Context, recipientID uint64, kind model.NotificationKind, payload Payload) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, uint64, model.NotificationKind, Payload) error { return nil }

// Render turns a notification kind and payload into an inbox entry.
func Render(recipientID uint64, kind model.NotificationKind, p Payload) model.Notification {
	n := model.Notification{
		RecipientID: recipientID,
		Kind:        kind,
		Type:        model.NotificationInfo,
		Link:        fmt.Sprintf("/events/%d", p.EventID),
		CreatedAt:   p.OccurredAt,
	}
	switch kind {
	case model.KindRegistrationConfirmed:
		n.Type = model.NotificationSuccess
		n.Title = "Registration confirmed"
		n.Message = fmt.Sprintf("You are registered for %q.", p.EventTitle)
	case model.KindRegistrationCancelled:
		n.Type = model.NotificationAlert
		n.Title = "Registration cancelled"
		n.Message = fmt.Sprintf("Your registration for %q was cancelled.", p.EventTitle)
	case model.KindAttendanceMarked:
		n.Title = "Attendance recorded"
		n.Message = fmt.Sprintf("Your attendance for %q was marked %s.", p.EventTitle, p.AttendanceStatus)
		if p.AttendanceStatus == string(model.AttendancePresent) {
			n.Type = model.NotificationSuccess
		}
	default:
		n.Title = "Notification"
		n.Message = p.EventTitle
	}
	return n
}

// InboxNotifier writes notifications straight into the SQL inbox.
type InboxNotifier struct {
	repo *repository.NotificationRepo
	now  func() time.Time
}

// NewInboxNotifier returns an InboxNotifier storing through repo.
func NewInboxNotifier(repo *repository.NotificationRepo) *InboxNotifier {
	return &InboxNotifier{repo: repo, now: time.Now}
}

func (n *InboxNotifier) Notify(ctx context.Context, recipientID uint64, kind model.NotificationKind, p Payload) error {
	if p.OccurredAt.IsZero() {
		p.OccurredAt = n.now().UTC()
	}
	entry := Render(recipientID, kind, p)
	return n.repo.Insert(ctx, &entry)
}

// Inbox serves a user's stored notifications.
type Inbox struct {
	repo *repository.NotificationRepo
	log  *slog.Logger
}

// DefaultInboxLimit caps how many notifications List returns.
const DefaultInboxLimit = 50

func NewInbox(repo *repository.NotificationRepo, log *slog.Logger) *Inbox {
	return &Inbox{repo: repo, log: log}
}

// List returns the newest notifications for userID.
func (i *Inbox) List(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > DefaultInboxLimit {
		limit = DefaultInboxLimit
	}
	items, err := i.repo.ListByRecipient(ctx, userID, limit)
	if err != nil {
		return nil, internal(ctx, i.log, "inbox.list", err, "user_id", userID)
	}
	return items, nil
}

// MarkRead flags one of userID's notifications as read.
func (i *Inbox) MarkRead(ctx context.Context, id, userID uint64) (model.Notification, error) {
	n, err := i.repo.MarkRead(ctx, id, userID)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, repository.ErrNotificationNotFound):
		return model.Notification{}, ErrNotificationNotFound
	case errors.Is(err, repository.ErrForbidden):
		return model.Notification{}, ErrNotOwner
	}
	return model.Notification{}, internal(ctx, i.log, "inbox.mark_read", err, "notification_id", id)
}

// notify calls n and logs a failure at WARN.  It never returns an error.
func notify(ctx context.Context, log *slog.Logger, n Notifier, recipientID uint64, kind model.NotificationKind, p Payload) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, recipientID, kind, p); err != nil {
		log.WarnContext(ctx, "notification failed",
			"kind", kind, "recipient_id", recipientID, "event_id", p.EventID, "error", err)
	}
}
