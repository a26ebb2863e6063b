package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/repository"
)

// AttendanceLedger records verified attendance and keeps the matching
// registration status in step.
type AttendanceLedger struct {
	db         *database.DB
	catalog    *EventCatalog
	ledger     *RegistrationLedger
	regs       *repository.RegistrationRepo
	attendance *repository.AttendanceRepo
	notifier   Notifier
	log        *slog.Logger
	now        func() time.Time
}

// NewAttendanceLedger wires an AttendanceLedger.  A nil notifier drops
// notifications.
func NewAttendanceLedger(db *database.DB, catalog *EventCatalog, ledger *RegistrationLedger, regs *repository.RegistrationRepo, attendance *repository.AttendanceRepo, notifier Notifier, log *slog.Logger) *AttendanceLedger {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AttendanceLedger{
		db:         db,
		catalog:    catalog,
		ledger:     ledger,
		regs:       regs,
		attendance: attendance,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// MarkAttendanceInput is a verifier's attendance decision for one user.
type MarkAttendanceInput struct {
	EventID    uint64
	UserID     uint64
	Status     model.AttendanceStatus
	VerifierID uint64
}

// normalize validates in and returns it with the status in canonical form.
func (in MarkAttendanceInput) normalize() (MarkAttendanceInput, error) {
	if in.EventID == 0 || in.UserID == 0 {
		return in, invalid("event_id and user_id are required")
	}
	if in.VerifierID == 0 {
		return in, invalid("verifier is required")
	}
	st, err := model.ParseAttendanceStatus(string(in.Status))
	if err != nil {
		return in, invalid(err.Error())
	}
	in.Status = st
	return in, nil
}

// MarkAttendance records present or absent for a registered user.  The
// attendance row and the registration status are written in one
// transaction; re-marking overwrites the previous decision and refreshes the
// check-in time.
func (l *AttendanceLedger) MarkAttendance(ctx context.Context, in MarkAttendanceInput) (model.Attendance, error) {
	in, err := in.normalize()
	if err != nil {
		return model.Attendance{}, err
	}
	now := l.now().UTC()
	var (
		rec   model.Attendance
		event model.Event
	)
	err = l.db.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		if event, err = l.catalog.GetTx(ctx, tx, in.EventID); err != nil {
			return err
		}
		if err := l.requireActiveRegistration(ctx, tx, in.UserID, in.EventID); err != nil {
			return err
		}
		rec = model.Attendance{
			EventID:     in.EventID,
			UserID:      in.UserID,
			Status:      in.Status,
			CheckInTime: now,
			VerifiedBy:  in.VerifierID,
		}
		if err := l.attendance.Upsert(ctx, tx, &rec); err != nil {
			return err
		}
		_, err = l.ledger.SyncFromAttendance(ctx, tx, in.UserID, in.EventID, in.Status)
		return err
	})
	if err != nil {
		return model.Attendance{}, internal(ctx, l.log, "attendance.mark", err, "event_id", in.EventID, "user_id", in.UserID)
	}

	l.log.InfoContext(ctx, "attendance marked",
		"event_id", in.EventID, "user_id", in.UserID, "status", in.Status, "verified_by", in.VerifierID)
	notify(ctx, l.log, l.notifier, in.UserID, model.KindAttendanceMarked, Payload{
		EventID:          in.EventID,
		EventTitle:       event.Title,
		AttendanceStatus: string(in.Status),
		OccurredAt:       now,
	})
	return rec, nil
}

func (l *AttendanceLedger) requireActiveRegistration(ctx context.Context, q database.Querier, userID, eventID uint64) error {
	reg, err := l.regs.FindByUserAndEvent(ctx, q, userID, eventID)
	if errors.Is(err, repository.ErrRegistrationNotFound) {
		return ErrRegistrationNotFound
	}
	if err != nil {
		return err
	}
	if !reg.Status.Active() {
		return ErrRegistrationNotFound
	}
	return nil
}

// CheckOut stamps the check-out time on a present attendance record.
func (l *AttendanceLedger) CheckOut(ctx context.Context, eventID, userID, verifierID uint64) (model.Attendance, error) {
	if eventID == 0 || userID == 0 || verifierID == 0 {
		return model.Attendance{}, invalid("event_id, user_id and verifier are required")
	}
	now := l.now().UTC()
	var rec model.Attendance
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := l.catalog.GetTx(ctx, tx, eventID); err != nil {
			return err
		}
		cur, err := l.attendance.Get(ctx, tx, eventID, userID)
		if errors.Is(err, repository.ErrAttendanceNotFound) {
			return ErrAttendanceNotFound
		}
		if err != nil {
			return err
		}
		if cur.Status != model.AttendancePresent {
			return ErrInvalidTransition
		}
		if err := l.attendance.SetCheckOut(ctx, tx, eventID, userID, now); err != nil {
			return err
		}
		cur.CheckOutTime = &now
		rec = cur
		return nil
	})
	if err != nil {
		return model.Attendance{}, internal(ctx, l.log, "attendance.check_out", err, "event_id", eventID, "user_id", userID)
	}
	l.log.InfoContext(ctx, "attendance checked out", "event_id", eventID, "user_id", userID, "verified_by", verifierID)
	return rec, nil
}

// ListForEvent returns the attendance records of an event ordered by
// check-in time.
func (l *AttendanceLedger) ListForEvent(ctx context.Context, eventID uint64) ([]model.Attendance, error) {
	if _, err := l.catalog.Get(ctx, eventID); err != nil {
		return nil, err
	}
	items, err := l.attendance.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(ctx, l.log, "attendance.list", err, "event_id", eventID)
	}
	return items, nil
}
