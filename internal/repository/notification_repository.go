package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/model"
)

const notificationColumns = "id, recipient_id, kind, type, title, message, link, is_read, created_at"

// NotificationRepo stores the per-user notification inbox.
type NotificationRepo struct {
	db *database.DB
}

// NewNotificationRepo returns a NotificationRepo bound to db.
func NewNotificationRepo(db *database.DB) *NotificationRepo { return &NotificationRepo{db: db} }

func scanNotification(row rowScanner) (model.Notification, error) {
	var (
		n         model.Notification
		createdAt int64
	)
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Type, &n.Title, &n.Message, &n.Link, &n.Read, &createdAt); err != nil {
		return model.Notification{}, err
	}
	n.CreatedAt = fromMillis(createdAt)
	return n, nil
}

// Insert stores n unread and fills in its ID.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	n.Read = false
	id, err := r.db.InsertID(ctx, r.db,
		"INSERT INTO notifications (recipient_id, kind, type, title, message, link, is_read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		n.RecipientID, n.Kind, n.Type, n.Title, n.Message, n.Link, false, toMillis(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	n.ID = id
	return nil
}

// GetByID loads one notification.
func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx,
		r.db.Rebind("SELECT "+notificationColumns+" FROM notifications WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, ErrNotificationNotFound
	}
	if err != nil {
		return model.Notification{}, fmt.Errorf("get notification %d: %w", id, err)
	}
	return n, nil
}

// ListByRecipient returns up to limit notifications for a user, newest first.
func (r *NotificationRepo) ListByRecipient(ctx context.Context, recipientID uint64, limit int) ([]model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+notificationColumns+" FROM notifications WHERE recipient_id = ? ORDER BY created_at DESC, id DESC LIMIT ?"),
		recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for user %d: %w", recipientID, err)
	}
	defer rows.Close()

	out := []model.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read.  Only its recipient may do so;
// anyone else gets ErrForbidden.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, recipientID uint64) (model.Notification, error) {
	n, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Notification{}, err
	}
	if n.RecipientID != recipientID {
		return model.Notification{}, ErrForbidden
	}
	if _, err := r.db.ExecContext(ctx,
		r.db.Rebind("UPDATE notifications SET is_read = ? WHERE id = ? AND recipient_id = ?"), true, id, recipientID); err != nil {
		return model.Notification{}, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	n.Read = true
	return n, nil
}
