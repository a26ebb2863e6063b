// Package repository holds the SQL data access layer.  Methods that may run
// inside a caller's transaction take a database.Querier; the rest use the
// pool directly.  Lookups that find nothing return the sentinel errors below
// so higher layers can tell failure scenarios apart without inspecting
// driver errors.
package repository

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrEventNotFound         = errors.New("event not found")
	ErrEventFull             = errors.New("event full")
	ErrCounterFloor          = errors.New("registered count already zero")
	ErrCapacityBelowCount    = errors.New("capacity below registered count")
	ErrRegistrationNotFound  = errors.New("registration not found")
	ErrDuplicateRegistration = errors.New("registration already exists")
	ErrAttendanceNotFound    = errors.New("attendance not found")
	ErrNotificationNotFound  = errors.New("notification not found")
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into an HTTP 403.
var ErrForbidden = errors.New("forbidden")
