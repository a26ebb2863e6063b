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

const eventColumns = "id, title, description, category, location, starts_at, capacity, registered_count, status, created_by, created_at"

// EventRepo persists events.  registered_count is only written through
// IncrementRegistered and DecrementRegistered.
type EventRepo struct {
	db *database.DB
}

// NewEventRepo returns an EventRepo bound to db.
func NewEventRepo(db *database.DB) *EventRepo { return &EventRepo{db: db} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		e                   model.Event
		startsAt, createdAt int64
	)
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &startsAt,
		&e.Capacity, &e.RegisteredCount, &e.Status, &e.CreatedBy, &createdAt)
	if err != nil {
		return model.Event{}, err
	}
	e.StartsAt = fromMillis(startsAt)
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}

// Create inserts e with a zero registered count and fills in its ID.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	e.RegisteredCount = 0
	id, err := r.db.InsertID(ctx, r.db,
		"INSERT INTO events (title, description, category, location, starts_at, capacity, registered_count, status, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)",
		e.Title, e.Description, e.Category, e.Location, toMillis(e.StartsAt), e.Capacity, e.Status, e.CreatedBy, toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ID = id
	return nil
}

// GetByID loads one event.  q may be the pool or a transaction.
func (r *EventRepo) GetByID(ctx context.Context, q database.Querier, id uint64) (model.Event, error) {
	e, err := scanEvent(q.QueryRowContext(ctx, r.db.Rebind("SELECT "+eventColumns+" FROM events WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("get event %d: %w", id, err)
	}
	return e, nil
}

// Exists reports whether an event row with id is present.
func (r *EventRepo) Exists(ctx context.Context, q database.Querier, id uint64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, r.db.Rebind("SELECT 1 FROM events WHERE id = ?"), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check event %d: %w", id, err)
	}
	return true, nil
}

// Update rewrites the editable columns of e.  The capacity guard is part of
// the statement so a concurrent registration cannot slip in between a check
// and the write; ErrCapacityBelowCount is returned when it rejects the row.
func (r *EventRepo) Update(ctx context.Context, q database.Querier, e *model.Event) error {
	res, err := q.ExecContext(ctx, r.db.Rebind(
		"UPDATE events SET title = ?, description = ?, category = ?, location = ?, starts_at = ?, capacity = ?, status = ? WHERE id = ? AND registered_count <= ?"),
		e.Title, e.Description, e.Category, e.Location, toMillis(e.StartsAt), e.Capacity, e.Status, e.ID, e.Capacity)
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event %d: %w", e.ID, err)
	}
	if n == 1 {
		return nil
	}
	ok, err := r.Exists(ctx, q, e.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEventNotFound
	}
	return ErrCapacityBelowCount
}

// IncrementRegistered takes one seat with a single conditional statement so
// concurrent callers can never push the count past capacity.  It returns
// ErrEventFull or ErrEventNotFound when no row was updated.
func (r *EventRepo) IncrementRegistered(ctx context.Context, q database.Querier, id uint64) error {
	res, err := q.ExecContext(ctx,
		r.db.Rebind("UPDATE events SET registered_count = registered_count + 1 WHERE id = ? AND registered_count < capacity"), id)
	if err != nil {
		return fmt.Errorf("reserve seat on event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seat on event %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	ok, err := r.Exists(ctx, q, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEventNotFound
	}
	return ErrEventFull
}

// DecrementRegistered gives one seat back.  It returns ErrCounterFloor when
// the count is already zero and ErrEventNotFound when the event is gone.
func (r *EventRepo) DecrementRegistered(ctx context.Context, q database.Querier, id uint64) error {
	res, err := q.ExecContext(ctx,
		r.db.Rebind("UPDATE events SET registered_count = registered_count - 1 WHERE id = ? AND registered_count > 0"), id)
	if err != nil {
		return fmt.Errorf("release seat on event %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release seat on event %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	ok, err := r.Exists(ctx, q, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEventNotFound
	}
	return ErrCounterFloor
}

// ListFilter narrows List.  Zero values mean no filter.
type ListFilter struct {
	Category model.Category
	Status   model.EventStatus
	From     time.Time
	Limit    int
	Offset   int
}

// List returns events ordered by start time.
func (r *EventRepo) List(ctx context.Context, f ListFilter) ([]model.Event, error) {
	query := "SELECT " + eventColumns + " FROM events WHERE 1 = 1"
	var args []any
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if !f.From.IsZero() {
		query += " AND starts_at >= ?"
		args = append(args, toMillis(f.From))
	}
	query += " ORDER BY starts_at, id"
	if f.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, f.Limit, f.Offset)
	}
	return r.query(ctx, query, args...)
}

// Recent returns the limit most recently created events.
func (r *EventRepo) Recent(ctx context.Context, limit int) ([]model.Event, error) {
	return r.query(ctx, "SELECT "+eventColumns+" FROM events ORDER BY created_at DESC, id DESC LIMIT ?", limit)
}

// Count returns the number of events.
func (r *EventRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

func (r *EventRepo) query(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
