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

const attendanceColumns = "id, event_id, user_id, status, check_in_time, check_out_time, verified_by"

// AttendanceRepo persists one attendance row per (event, user) pair.
type AttendanceRepo struct {
	db *database.DB
}

// NewAttendanceRepo returns an AttendanceRepo bound to db.
func NewAttendanceRepo(db *database.DB) *AttendanceRepo { return &AttendanceRepo{db: db} }

func scanAttendance(row rowScanner) (model.Attendance, error) {
	var (
		a        model.Attendance
		checkIn  int64
		checkOut sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.EventID, &a.UserID, &a.Status, &checkIn, &checkOut, &a.VerifiedBy); err != nil {
		return model.Attendance{}, err
	}
	a.CheckInTime = fromMillis(checkIn)
	a.CheckOutTime = fromNullMillis(checkOut)
	return a, nil
}

// upsertSQL writes status, check-in time and verifier for the pair, clearing
// any previous check-out.  Every engine resolves the conflict on the unique
// (event_id, user_id) key in one statement.
func (r *AttendanceRepo) upsertSQL() string {
	const insert = "INSERT INTO attendance (event_id, user_id, status, check_in_time, check_out_time, verified_by) VALUES (?, ?, ?, ?, NULL, ?)"
	if r.db.Driver == database.DriverMySQL {
		return insert + " ON DUPLICATE KEY UPDATE status = VALUES(status), check_in_time = VALUES(check_in_time), check_out_time = NULL, verified_by = VALUES(verified_by)"
	}
	return insert + " ON CONFLICT (event_id, user_id) DO UPDATE SET status = excluded.status, check_in_time = excluded.check_in_time, check_out_time = NULL, verified_by = excluded.verified_by"
}

// Upsert records the latest verification for a.EventID/a.UserID and loads
// the stored row back into a.
func (r *AttendanceRepo) Upsert(ctx context.Context, q database.Querier, a *model.Attendance) error {
	_, err := q.ExecContext(ctx, r.db.Rebind(r.upsertSQL()),
		a.EventID, a.UserID, a.Status, toMillis(a.CheckInTime), a.VerifiedBy)
	if err != nil {
		return fmt.Errorf("upsert attendance event=%d user=%d: %w", a.EventID, a.UserID, err)
	}
	stored, err := r.Get(ctx, q, a.EventID, a.UserID)
	if err != nil {
		return err
	}
	*a = stored
	return nil
}

// Get loads the attendance row for a pair.
func (r *AttendanceRepo) Get(ctx context.Context, q database.Querier, eventID, userID uint64) (model.Attendance, error) {
	a, err := scanAttendance(q.QueryRowContext(ctx,
		r.db.Rebind("SELECT "+attendanceColumns+" FROM attendance WHERE event_id = ? AND user_id = ?"), eventID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Attendance{}, ErrAttendanceNotFound
	}
	if err != nil {
		return model.Attendance{}, fmt.Errorf("get attendance event=%d user=%d: %w", eventID, userID, err)
	}
	return a, nil
}

// SetCheckOut stamps the check-out time on an existing row.
func (r *AttendanceRepo) SetCheckOut(ctx context.Context, q database.Querier, eventID, userID uint64, at time.Time) error {
	res, err := q.ExecContext(ctx,
		r.db.Rebind("UPDATE attendance SET check_out_time = ? WHERE event_id = ? AND user_id = ?"),
		toMillis(at), eventID, userID)
	if err != nil {
		return fmt.Errorf("check out event=%d user=%d: %w", eventID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check out event=%d user=%d: %w", eventID, userID, err)
	}
	if n == 0 {
		return ErrAttendanceNotFound
	}
	return nil
}

// ListByEvent returns the attendance rows of an event ordered by check-in.
func (r *AttendanceRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Attendance, error) {
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind("SELECT "+attendanceColumns+" FROM attendance WHERE event_id = ? ORDER BY check_in_time, id"), eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendance for event %d: %w", eventID, err)
	}
	defer rows.Close()

	out := []model.Attendance{}
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
