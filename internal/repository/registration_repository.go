package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/model"
)

const registrationColumns = "id, user_id, event_id, status, registered_at, updated_at"

// RegistrationRepo persists registrations.  Rows are never deleted and the
// status column is only changed through Transition.
type RegistrationRepo struct {
	db *database.DB
}

// NewRegistrationRepo returns a RegistrationRepo bound to db.
func NewRegistrationRepo(db *database.DB) *RegistrationRepo { return &RegistrationRepo{db: db} }

func scanRegistration(row rowScanner) (model.Registration, error) {
	var (
		reg                     model.Registration
		registeredAt, updatedAt int64
	)
	if err := row.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.Status, &registeredAt, &updatedAt); err != nil {
		return model.Registration{}, err
	}
	reg.RegisteredAt = fromMillis(registeredAt)
	reg.UpdatedAt = fromMillis(updatedAt)
	return reg, nil
}

// Insert adds a new registration and fills in its ID.  A second row for the
// same (user, event) pair yields ErrDuplicateRegistration.
func (r *RegistrationRepo) Insert(ctx context.Context, q database.Querier, reg *model.Registration) error {
	id, err := r.db.InsertID(ctx, q,
		"INSERT INTO registrations (user_id, event_id, status, registered_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		reg.UserID, reg.EventID, reg.Status, toMillis(reg.RegisteredAt), toMillis(reg.UpdatedAt))
	if err != nil {
		if r.db.IsUniqueViolation(err) {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	reg.ID = id
	return nil
}

// GetByID loads one registration.
func (r *RegistrationRepo) GetByID(ctx context.Context, q database.Querier, id uint64) (model.Registration, error) {
	reg, err := scanRegistration(q.QueryRowContext(ctx,
		r.db.Rebind("SELECT "+registrationColumns+" FROM registrations WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, ErrRegistrationNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("get registration %d: %w", id, err)
	}
	return reg, nil
}

// GetByIDForUpdate is GetByID with a row lock on drivers that support
// SELECT ... FOR UPDATE.  Inside a transaction it returns the latest
// committed version rather than the transaction's snapshot.  SQLite already
// serializes writers, so the plain read is used there.
func (r *RegistrationRepo) GetByIDForUpdate(ctx context.Context, q database.Querier, id uint64) (model.Registration, error) {
	query := "SELECT " + registrationColumns + " FROM registrations WHERE id = ?"
	if r.db.Driver != database.DriverSQLite {
		query += " FOR UPDATE"
	}
	reg, err := scanRegistration(q.QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, ErrRegistrationNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("lock registration %d: %w", id, err)
	}
	return reg, nil
}

// FindByUserAndEvent loads the registration for a (user, event) pair in any
// status.
func (r *RegistrationRepo) FindByUserAndEvent(ctx context.Context, q database.Querier, userID, eventID uint64) (model.Registration, error) {
	reg, err := scanRegistration(q.QueryRowContext(ctx,
		r.db.Rebind("SELECT "+registrationColumns+" FROM registrations WHERE user_id = ? AND event_id = ?"), userID, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, ErrRegistrationNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("find registration user=%d event=%d: %w", userID, eventID, err)
	}
	return reg, nil
}

// Transition moves a registration from one status to another only if it is
// still in from.  It reports whether the row was changed.
func (r *RegistrationRepo) Transition(ctx context.Context, q database.Querier, id uint64, from, to model.RegistrationStatus, at time.Time) (bool, error) {
	res, err := q.ExecContext(ctx,
		r.db.Rebind("UPDATE registrations SET status = ?, updated_at = ? WHERE id = ? AND status = ?"),
		to, toMillis(at), id, from)
	if err != nil {
		return false, fmt.Errorf("transition registration %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition registration %d: %w", id, err)
	}
	return n == 1, nil
}

// ListByUser returns a user's registrations, newest first, joined with the
// event summary.
func (r *RegistrationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.RegistrationWithEvent, error) {
	const q = `SELECT r.id, r.user_id, r.event_id, r.status, r.registered_at, r.updated_at, e.title, e.starts_at, e.location
FROM registrations r JOIN events e ON e.id = r.event_id
WHERE r.user_id = ?
ORDER BY r.registered_at DESC, r.id DESC`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for user %d: %w", userID, err)
	}
	defer rows.Close()

	out := []model.RegistrationWithEvent{}
	for rows.Next() {
		var (
			item                              model.RegistrationWithEvent
			registeredAt, updatedAt, startsAt int64
		)
		if err := rows.Scan(&item.ID, &item.UserID, &item.EventID, &item.Status, &registeredAt, &updatedAt,
			&item.EventTitle, &startsAt, &item.EventLocation); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		item.RegisteredAt = fromMillis(registeredAt)
		item.UpdatedAt = fromMillis(updatedAt)
		item.EventStartsAt = fromMillis(startsAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

// ListByEvent returns every registration for an event in registration order.
func (r *RegistrationRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+registrationColumns+" FROM registrations WHERE event_id = ? ORDER BY registered_at, id"), eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for event %d: %w", eventID, err)
	}
	defer rows.Close()

	out := []model.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}

// CountByStatus counts registrations in status across all events.
func (r *RegistrationRepo) CountByStatus(ctx context.Context, status model.RegistrationStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind("SELECT COUNT(*) FROM registrations WHERE status = ?"), status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return n, nil
}

// CountByUserAndStatus counts one user's registrations in status.
func (r *RegistrationRepo) CountByUserAndStatus(ctx context.Context, userID uint64, status model.RegistrationStatus) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind("SELECT COUNT(*) FROM registrations WHERE user_id = ? AND status = ?"), userID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count registrations for user %d: %w", userID, err)
	}
	return n, nil
}

// CountActiveForEvent counts the registrations of an event that hold a seat.
func (r *RegistrationRepo) CountActiveForEvent(ctx context.Context, q database.Querier, eventID uint64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		r.db.Rebind("SELECT COUNT(*) FROM registrations WHERE event_id = ? AND status <> ?"), eventID, model.RegistrationCancelled).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active registrations for event %d: %w", eventID, err)
	}
	return n, nil
}
