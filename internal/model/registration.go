package model

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is the state of a user's registration for an event.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationAbsent     RegistrationStatus = "absent"
)

// ParseRegistrationStatus converts a raw string into a RegistrationStatus.
func ParseRegistrationStatus(s string) (RegistrationStatus, error) {
	switch st := RegistrationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RegistrationRegistered, RegistrationCancelled, RegistrationAttended, RegistrationAbsent:
		return st, nil
	}
	return "", fmt.Errorf("unknown registration status %q", s)
}

// Active reports whether the registration holds a seat.
func (s RegistrationStatus) Active() bool {
	return s != RegistrationCancelled
}

// CanTransitionTo reports whether a registration in state s may move to next.
//
//	registered -> cancelled | attended | absent
//	attended   -> absent | attended
//	absent     -> attended | absent
//	cancelled  -> (terminal)
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	switch s {
	case RegistrationRegistered:
		return next == RegistrationCancelled || next == RegistrationAttended || next == RegistrationAbsent
	case RegistrationAttended, RegistrationAbsent:
		return next == RegistrationAttended || next == RegistrationAbsent
	}
	return false
}

// Registration records that a user holds (or held) a seat at an event.
// Rows are never deleted; cancellation is a status change.
type Registration struct {
	ID           uint64             `json:"id"`            // registrations.id
	UserID       uint64             `json:"user_id"`       // registrations.user_id
	EventID      uint64             `json:"event_id"`      // registrations.event_id
	Status       RegistrationStatus `json:"status"`        // registrations.status
	RegisteredAt time.Time          `json:"registered_at"` // registrations.registered_at
	UpdatedAt    time.Time          `json:"updated_at"`    // registrations.updated_at
}

// RegistrationWithEvent is a registration joined with the event summary a
// volunteer sees in their own listing.
type RegistrationWithEvent struct {
	Registration
	EventTitle    string    `json:"event_title"`
	EventStartsAt time.Time `json:"event_starts_at"`
	EventLocation string    `json:"event_location"`
}
