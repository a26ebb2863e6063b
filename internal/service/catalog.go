package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/volunteerconnect/event-registration/internal/database"
	"github.com/volunteerconnect/event-registration/internal/model"
	"github.com/volunteerconnect/event-registration/internal/repository"
)

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	DefaultPageSize      = 20
	MaxPageSize          = 100
)

// EventCatalog owns events and is the only writer of their registered
// count.
type EventCatalog struct {
	db     *database.DB
	events *repository.EventRepo
	regs   *repository.RegistrationRepo
	log    *slog.Logger
	now    func() time.Time
}

// NewEventCatalog wires an EventCatalog.
func NewEventCatalog(db *database.DB, events *repository.EventRepo, regs *repository.RegistrationRepo, log *slog.Logger) *EventCatalog {
	return &EventCatalog{db: db, events: events, regs: regs, log: log, now: time.Now}
}

// ReserveSeat takes one seat on eventID within q.  It fails with
// ErrEventNotFound or ErrEventFull and never over-books.
func (c *EventCatalog) ReserveSeat(ctx context.Context, q database.Querier, eventID uint64) error {
	err := c.events.IncrementRegistered(ctx, q, eventID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrEventNotFound):
		return ErrEventNotFound
	case errors.Is(err, repository.ErrEventFull):
		return ErrEventFull
	}
	return internal(ctx, c.log, "catalog.reserve_seat", err, "event_id", eventID)
}

// ReleaseSeat gives one seat back on eventID within q.  A counter that is
// already zero is logged and left at zero.
func (c *EventCatalog) ReleaseSeat(ctx context.Context, q database.Querier, eventID uint64) error {
	err := c.events.DecrementRegistered(ctx, q, eventID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrCounterFloor):
		c.log.ErrorContext(ctx, "invariant violation: release below zero",
			"invariant", "registered_count_floor", "event_id", eventID)
		return nil
	case errors.Is(err, repository.ErrEventNotFound):
		c.log.ErrorContext(ctx, "invariant violation: seat released on missing event",
			"invariant", "registration_event_exists", "event_id", eventID)
		return ErrEventNotFound
	}
	return internal(ctx, c.log, "catalog.release_seat", err, "event_id", eventID)
}

// Get returns the current state of an event.
func (c *EventCatalog) Get(ctx context.Context, eventID uint64) (model.Event, error) {
	return c.GetTx(ctx, c.db, eventID)
}

// GetTx is Get reading through q.
func (c *EventCatalog) GetTx(ctx context.Context, q database.Querier, eventID uint64) (model.Event, error) {
	e, err := c.events.GetByID(ctx, q, eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return model.Event{}, ErrEventNotFound
	}
	if err != nil {
		return model.Event{}, internal(ctx, c.log, "catalog.get", err, "event_id", eventID)
	}
	return e, nil
}

// CreateEventInput is the organizer's request to publish an event.
type CreateEventInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	StartsAt    time.Time
	Capacity    int
	CreatedBy   uint64
}

func (in CreateEventInput) validate() (model.Category, error) {
	if in.CreatedBy == 0 {
		return "", invalid("creator is required")
	}
	return validateEventFields(in.Title, in.Description, in.Category, in.Location, in.StartsAt, in.Capacity)
}

func validateEventFields(title, description, category, location string, startsAt time.Time, capacity int) (model.Category, error) {
	title = strings.TrimSpace(title)
	switch {
	case title == "":
		return "", invalid("title is required")
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return "", invalid("title must be at most 100 characters")
	case utf8.RuneCountInString(description) > MaxDescriptionLength:
		return "", invalid("description must be at most 500 characters")
	case strings.TrimSpace(location) == "":
		return "", invalid("location is required")
	case startsAt.IsZero():
		return "", invalid("starts_at is required")
	case capacity <= 0:
		return "", invalid("capacity must be positive")
	}
	cat, err := model.ParseCategory(category)
	if err != nil {
		return "", invalid(err.Error())
	}
	return cat, nil
}

// Create publishes a new upcoming event with no seats taken.
func (c *EventCatalog) Create(ctx context.Context, in CreateEventInput) (model.Event, error) {
	// composed form so length limits count what users see
	in.Title = norm.NFC.String(in.Title)
	in.Description = norm.NFC.String(in.Description)
	cat, err := in.validate()
	if err != nil {
		return model.Event{}, err
	}
	e := model.Event{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Category:    cat,
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    in.StartsAt.UTC(),
		Capacity:    in.Capacity,
		Status:      model.EventUpcoming,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.events.Create(ctx, &e); err != nil {
		return model.Event{}, internal(ctx, c.log, "catalog.create", err)
	}
	c.log.InfoContext(ctx, "event created", "event_id", e.ID, "capacity", e.Capacity, "created_by", e.CreatedBy)
	return e, nil
}

// UpdateEventInput replaces the editable fields of an event.  An empty
// Status keeps the current one.
type UpdateEventInput struct {
	Title       string
	Description string
	Category    string
	Location    string
	StartsAt    time.Time
	Capacity    int
	Status      string
}

// Update edits an event in place.  Capacity may not drop below the seats
// already taken; the registered count itself is never written here.
func (c *EventCatalog) Update(ctx context.Context, eventID uint64, in UpdateEventInput) (model.Event, error) {
	in.Title = norm.NFC.String(in.Title)
	in.Description = norm.NFC.String(in.Description)
	cat, err := validateEventFields(in.Title, in.Description, in.Category, in.Location, in.StartsAt, in.Capacity)
	if err != nil {
		return model.Event{}, err
	}
	var status model.EventStatus
	if in.Status != "" {
		if status, err = model.ParseEventStatus(in.Status); err != nil {
			return model.Event{}, invalid(err.Error())
		}
	}

	var e model.Event
	err = c.db.InTx(ctx, func(tx *sql.Tx) error {
		cur, err := c.GetTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		e = cur
		e.Title = strings.TrimSpace(in.Title)
		e.Description = strings.TrimSpace(in.Description)
		e.Category = cat
		e.Location = strings.TrimSpace(in.Location)
		e.StartsAt = in.StartsAt.UTC()
		e.Capacity = in.Capacity
		if status != "" {
			e.Status = status
		}
		err = c.events.Update(ctx, tx, &e)
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return ErrEventNotFound
		case errors.Is(err, repository.ErrCapacityBelowCount):
			return ErrCapacityBelowCount
		}
		if err != nil {
			return err
		}
		// re-read so the returned seat count is the one the guard saw
		e, err = c.GetTx(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return model.Event{}, internal(ctx, c.log, "catalog.update", err, "event_id", eventID)
	}
	c.log.InfoContext(ctx, "event updated", "event_id", e.ID, "capacity", e.Capacity, "status", e.Status)
	return e, nil
}

// ListEventsInput filters and pages List.  Empty strings mean no filter.
type ListEventsInput struct {
	Category     string
	Status       string
	UpcomingOnly bool
	Limit        int
	Offset       int
}

// List returns events ordered by start time.
func (c *EventCatalog) List(ctx context.Context, in ListEventsInput) ([]model.Event, error) {
	f := repository.ListFilter{Limit: in.Limit, Offset: in.Offset}
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		return nil, invalid("offset must not be negative")
	}
	if in.Category != "" {
		cat, err := model.ParseCategory(in.Category)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.Category = cat
	}
	if in.Status != "" {
		st, err := model.ParseEventStatus(in.Status)
		if err != nil {
			return nil, invalid(err.Error())
		}
		f.Status = st
	}
	if in.UpcomingOnly {
		f.From = c.now().UTC()
	}
	events, err := c.events.List(ctx, f)
	if err != nil {
		return nil, internal(ctx, c.log, "catalog.list", err)
	}
	return events, nil
}

// CapacityAudit compares the stored counter with the registrations that
// actually hold a seat.
type CapacityAudit struct {
	EventID             uint64 `json:"event_id"`
	Capacity            int    `json:"capacity"`
	RegisteredCount     int    `json:"registered_count"`
	ActiveRegistrations int    `json:"active_registrations"`
	Consistent          bool   `json:"consistent"`
}

// Audit checks the registered-count invariant for one event and logs a
// mismatch as an invariant violation.
func (c *EventCatalog) Audit(ctx context.Context, eventID uint64) (CapacityAudit, error) {
	var a CapacityAudit
	err := c.db.InTx(ctx, func(tx *sql.Tx) error {
		e, err := c.GetTx(ctx, tx, eventID)
		if err != nil {
			return err
		}
		active, err := c.regs.CountActiveForEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		a = CapacityAudit{
			EventID:             e.ID,
			Capacity:            e.Capacity,
			RegisteredCount:     e.RegisteredCount,
			ActiveRegistrations: active,
		}
		return nil
	})
	if err != nil {
		return CapacityAudit{}, internal(ctx, c.log, "catalog.audit", err, "event_id", eventID)
	}
	a.Consistent = a.RegisteredCount == a.ActiveRegistrations && a.RegisteredCount <= a.Capacity
	if !a.Consistent {
		c.log.ErrorContext(ctx, "invariant violation: registered count drift",
			"invariant", "registered_count_matches_active",
			"event_id", eventID, "registered_count", a.RegisteredCount,
			"active_registrations", a.ActiveRegistrations, "capacity", a.Capacity)
	}
	return a, nil
}
