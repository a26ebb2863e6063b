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

// RegistrationLedger owns registrations and is the only place their status
// changes.
type RegistrationLedger struct {
	db       *database.DB
	catalog  *EventCatalog
	regs     *repository.RegistrationRepo
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewRegistrationLedger wires a RegistrationLedger.  A nil notifier drops
// notifications.
func NewRegistrationLedger(db *database.DB, catalog *EventCatalog, regs *repository.RegistrationRepo, notifier Notifier, log *slog.Logger) *RegistrationLedger {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RegistrationLedger{db: db, catalog: catalog, regs: regs, notifier: notifier, log: log, now: time.Now}
}

func existingRegistrationError(reg model.Registration) error {
	if reg.Status == model.RegistrationCancelled {
		return ErrAlreadyCancelled
	}
	return ErrAlreadyRegistered
}

// Register gives userID a seat at eventID.  The seat reservation and the
// registration insert commit together; a lost race on the unique
// (user, event) key rolls the seat back.
func (l *RegistrationLedger) Register(ctx context.Context, userID, eventID uint64) (model.Registration, error) {
	if userID == 0 || eventID == 0 {
		return model.Registration{}, invalid("user_id and event_id are required")
	}
	event, err := l.catalog.Get(ctx, eventID)
	if err != nil {
		return model.Registration{}, err
	}

	existing, err := l.regs.FindByUserAndEvent(ctx, l.db, userID, eventID)
	switch {
	case err == nil:
		return model.Registration{}, existingRegistrationError(existing)
	case !errors.Is(err, repository.ErrRegistrationNotFound):
		return model.Registration{}, internal(ctx, l.log, "registration.register", err, "user_id", userID, "event_id", eventID)
	}

	now := l.now().UTC()
	reg := model.Registration{
		UserID:       userID,
		EventID:      eventID,
		Status:       model.RegistrationRegistered,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	err = l.db.InTx(ctx, func(tx *sql.Tx) error {
		// a concurrent registration may have committed since the check above
		if cur, err := l.regs.FindByUserAndEvent(ctx, tx, userID, eventID); err == nil {
			return existingRegistrationError(cur)
		} else if !errors.Is(err, repository.ErrRegistrationNotFound) {
			return err
		}
		if err := l.catalog.ReserveSeat(ctx, tx, eventID); err != nil {
			return err
		}
		if err := l.regs.Insert(ctx, tx, &reg); err != nil {
			if errors.Is(err, repository.ErrDuplicateRegistration) {
				return ErrAlreadyRegistered
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Registration{}, internal(ctx, l.log, "registration.register", err, "user_id", userID, "event_id", eventID)
	}

	l.log.InfoContext(ctx, "registration created", "registration_id", reg.ID, "user_id", userID, "event_id", eventID)
	notify(ctx, l.log, l.notifier, userID, model.KindRegistrationConfirmed, Payload{
		EventID:        eventID,
		EventTitle:     event.Title,
		RegistrationID: reg.ID,
		OccurredAt:     now,
	})
	return reg, nil
}

// Cancel withdraws a registration owned by requestingUserID and releases its
// seat in the same transaction.  Attended or absent registrations cannot be
// cancelled.
func (l *RegistrationLedger) Cancel(ctx context.Context, registrationID, requestingUserID uint64) (model.Registration, error) {
	if registrationID == 0 || requestingUserID == 0 {
		return model.Registration{}, invalid("registration id and user are required")
	}
	now := l.now().UTC()
	var (
		reg   model.Registration
		event model.Event
	)
	err := l.db.InTx(ctx, func(tx *sql.Tx) error {
		cur, err := l.regs.GetByID(ctx, tx, registrationID)
		if errors.Is(err, repository.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return err
		}
		if cur.UserID != requestingUserID {
			return ErrNotOwner
		}
		if cur.Status == model.RegistrationCancelled {
			return ErrAlreadyCancelled
		}
		if !cur.Status.CanTransitionTo(model.RegistrationCancelled) {
			return ErrInvalidTransition
		}
		if reg, err = l.transition(ctx, tx, cur, model.RegistrationCancelled, now); err != nil {
			return err
		}
		if err := l.catalog.ReleaseSeat(ctx, tx, cur.EventID); err != nil {
			return err
		}
		event, err = l.catalog.GetTx(ctx, tx, cur.EventID)
		return err
	})
	if err != nil {
		return model.Registration{}, internal(ctx, l.log, "registration.cancel", err, "registration_id", registrationID)
	}

	l.log.InfoContext(ctx, "registration cancelled", "registration_id", reg.ID, "user_id", reg.UserID, "event_id", reg.EventID)
	notify(ctx, l.log, l.notifier, reg.UserID, model.KindRegistrationCancelled, Payload{
		EventID:        reg.EventID,
		EventTitle:     event.Title,
		RegistrationID: reg.ID,
		OccurredAt:     now,
	})
	return reg, nil
}

// SyncFromAttendance mirrors an attendance outcome onto the registration of
// the pair, within q.  It never touches the seat counter.
func (l *RegistrationLedger) SyncFromAttendance(ctx context.Context, q database.Querier, userID, eventID uint64, status model.AttendanceStatus) (model.Registration, error) {
	cur, err := l.regs.FindByUserAndEvent(ctx, q, userID, eventID)
	if errors.Is(err, repository.ErrRegistrationNotFound) {
		return model.Registration{}, ErrRegistrationNotFound
	}
	if err != nil {
		return model.Registration{}, internal(ctx, l.log, "registration.sync", err, "user_id", userID, "event_id", eventID)
	}
	if cur.Status == model.RegistrationCancelled {
		return model.Registration{}, ErrAlreadyCancelled
	}
	next := status.RegistrationStatus()
	if !cur.Status.CanTransitionTo(next) {
		return model.Registration{}, ErrInvalidTransition
	}
	return l.transition(ctx, q, cur, next, l.now().UTC())
}

// transition applies cur -> to as a compare-and-set on cur.Status.  When the
// row moved underneath, a locking re-read of the committed state decides the
// error.
func (l *RegistrationLedger) transition(ctx context.Context, q database.Querier, cur model.Registration, to model.RegistrationStatus, at time.Time) (model.Registration, error) {
	ok, err := l.regs.Transition(ctx, q, cur.ID, cur.Status, to, at)
	if err != nil {
		return model.Registration{}, internal(ctx, l.log, "registration.transition", err, "registration_id", cur.ID)
	}
	if !ok {
		fresh, err := l.regs.GetByIDForUpdate(ctx, q, cur.ID)
		if err != nil {
			return model.Registration{}, internal(ctx, l.log, "registration.transition", err, "registration_id", cur.ID)
		}
		if fresh.Status == model.RegistrationCancelled {
			return model.Registration{}, ErrAlreadyCancelled
		}
		return model.Registration{}, ErrConcurrentModification
	}
	cur.Status = to
	cur.UpdatedAt = at
	return cur, nil
}

// ListForUser returns userID's registrations, newest first.
func (l *RegistrationLedger) ListForUser(ctx context.Context, userID uint64) ([]model.RegistrationWithEvent, error) {
	items, err := l.regs.ListByUser(ctx, userID)
	if err != nil {
		return nil, internal(ctx, l.log, "registration.list_for_user", err, "user_id", userID)
	}
	return items, nil
}

// ListForEvent returns every registration of an existing event.
func (l *RegistrationLedger) ListForEvent(ctx context.Context, eventID uint64) ([]model.Registration, error) {
	if _, err := l.catalog.Get(ctx, eventID); err != nil {
		return nil, err
	}
	items, err := l.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, internal(ctx, l.log, "registration.list_for_event", err, "event_id", eventID)
	}
	return items, nil
}
