package service

import (
	"context"
	"errors"
	"log/slog"
)

// Kind classifies an Error for transport mapping.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	}
	return "internal"
}

// Code is the machine-readable reason carried to clients.
type Code string

const (
	CodeEventNotFound          Code = "EVENT_NOT_FOUND"
	CodeEventFull              Code = "EVENT_FULL"
	CodeCapacityBelowCount     Code = "CAPACITY_BELOW_REGISTERED"
	CodeAlreadyRegistered      Code = "ALREADY_REGISTERED"
	CodeAlreadyCancelled       Code = "ALREADY_CANCELLED"
	CodeNotOwner               Code = "NOT_OWNER"
	CodeRegistrationNotFound   Code = "REGISTRATION_NOT_FOUND"
	CodeAttendanceNotFound     Code = "ATTENDANCE_NOT_FOUND"
	CodeNotificationNotFound   Code = "NOTIFICATION_NOT_FOUND"
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeInvalidArgument        Code = "INVALID_ARGUMENT"
	CodeInternal               Code = "INTERNAL"
)

// Error is the domain error returned by every service operation.
type Error struct {
	Kind    Kind
	Code    Code
	Message string // safe to show to clients
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrEventNotFound          = &Error{Kind: KindNotFound, Code: CodeEventNotFound, Message: "event not found"}
	ErrEventFull              = &Error{Kind: KindConflict, Code: CodeEventFull, Message: "event is full"}
	ErrCapacityBelowCount     = &Error{Kind: KindConflict, Code: CodeCapacityBelowCount, Message: "capacity is below the number of registered volunteers"}
	ErrAlreadyRegistered      = &Error{Kind: KindConflict, Code: CodeAlreadyRegistered, Message: "already registered for this event"}
	ErrAlreadyCancelled       = &Error{Kind: KindConflict, Code: CodeAlreadyCancelled, Message: "registration already cancelled"}
	ErrNotOwner               = &Error{Kind: KindForbidden, Code: CodeNotOwner, Message: "not the owner of this resource"}
	ErrRegistrationNotFound   = &Error{Kind: KindNotFound, Code: CodeRegistrationNotFound, Message: "registration not found"}
	ErrAttendanceNotFound     = &Error{Kind: KindNotFound, Code: CodeAttendanceNotFound, Message: "attendance not found"}
	ErrNotificationNotFound   = &Error{Kind: KindNotFound, Code: CodeNotificationNotFound, Message: "notification not found"}
	ErrInvalidTransition      = &Error{Kind: KindConflict, Code: CodeInvalidTransition, Message: "status transition not allowed"}
	ErrConcurrentModification = &Error{Kind: KindConflict, Code: CodeConcurrentModification, Message: "registration was modified concurrently"}
	ErrInvalidArgument        = &Error{Kind: KindInvalid, Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrInternal               = &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error"}
)

// invalid returns an INVALID_ARGUMENT error with a specific message.
func invalid(msg string) *Error {
	return &Error{Kind: KindInvalid, Code: CodeInvalidArgument, Message: msg}
}

// AsError extracts the *Error in err's chain.  Anything else is reported as
// ErrInternal.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal
}

// internal logs an unexpected failure with its context and hides it behind
// ErrInternal.  Domain errors pass through untouched.
func internal(ctx context.Context, log *slog.Logger, op string, err error, attrs ...any) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	log.ErrorContext(ctx, "unexpected error", append([]any{"op", op, "error", err}, attrs...)...)
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: ErrInternal.Message, Cause: err}
}
