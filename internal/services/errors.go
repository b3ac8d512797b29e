package services

import (
	"errors"
	"fmt"
)

// ErrorKind groups failures by how callers should react to them
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindAuthorization
	KindNotFound
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

// Error is a named failure of a core operation
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so wrapped copies of a sentinel still compare equal
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation             = &Error{Kind: KindValidation, Code: "VALIDATION_FAILED", Message: "validation failed"}
	ErrDuplicateActiveBooking = &Error{Kind: KindConflict, Code: "DUPLICATE_ACTIVE_BOOKING", Message: "an active booking already exists for this room"}
	ErrListingUnavailable     = &Error{Kind: KindConflict, Code: "LISTING_UNAVAILABLE", Message: "listing is not available"}
	ErrInvalidTransition      = &Error{Kind: KindConflict, Code: "INVALID_TRANSITION", Message: "booking status cannot change this way"}
	ErrDuesMismatch           = &Error{Kind: KindConflict, Code: "DUES_MISMATCH", Message: "confirmed amount does not match dues"}
	ErrThreadClosed           = &Error{Kind: KindConflict, Code: "THREAD_CLOSED", Message: "thread no longer accepts messages"}
	ErrUnauthorized           = &Error{Kind: KindAuthorization, Code: "UNAUTHORIZED", Message: "not permitted"}
	ErrAccountDeactivated     = &Error{Kind: KindAuthorization, Code: "ACCOUNT_DEACTIVATED", Message: "account deactivated"}
	ErrNotFound               = &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: "not found"}
	ErrTransient              = &Error{Kind: KindTransient, Code: "TRANSIENT", Message: "temporary failure"}
)

// Invalid returns a validation error carrying a specific message
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: fmt.Sprintf(format, args...)}
}

// transient wraps a store or network failure
func transient(op string, err error) error {
	return &Error{Kind: KindTransient, Code: ErrTransient.Code, Message: op, Err: err}
}

// KindOf reports the kind of err; unknown errors count as transient
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}
