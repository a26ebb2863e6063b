package model

import "time"

// NotificationKind names the domain event a notification reports.
type NotificationKind string

const (
	KindRegistrationConfirmed NotificationKind = "registration_confirmed"
	KindRegistrationCancelled NotificationKind = "registration_cancelled"
	KindAttendanceMarked      NotificationKind = "attendance_marked"
)

// NotificationType is the presentation class of an inbox entry.
type NotificationType string

const (
	NotificationInfo     NotificationType = "info"
	NotificationAlert    NotificationType = "alert"
	NotificationReminder NotificationType = "reminder"
	NotificationSuccess  NotificationType = "success"
)

// Notification is one entry in a user's inbox.
type Notification struct {
	ID          uint64           `json:"id"`           // notifications.id
	RecipientID uint64           `json:"recipient_id"` // notifications.recipient_id
	Kind        NotificationKind `json:"kind"`         // notifications.kind
	Type        NotificationType `json:"type"`         // notifications.type
	Title       string           `json:"title"`        // notifications.title
	Message     string           `json:"message"`      // notifications.message
	Link        string           `json:"link"`         // notifications.link
	Read        bool             `json:"read"`         // notifications.is_read
	CreatedAt   time.Time        `json:"created_at"`   // notifications.created_at
}
