package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure so the API layer can pick a status code.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindConflict
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by the service layer.
// Two errors match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *Error) WithMessage(format string, args ...any) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// WithDetails returns a copy of e carrying per-item messages.
func (e *Error) WithDetails(details ...string) *Error {
	c := *e
	c.Details = append([]string(nil), details...)
	return &c
}

var (
	ErrTicketTypeNotFound = &Error{Kind: KindNotFound, Code: "ticket_type_not_found", Message: "ticket type not found"}
	ErrTicketNotFound     = &Error{Kind: KindNotFound, Code: "ticket_not_found", Message: "ticket not found"}
	ErrUserNotFound       = &Error{Kind: KindNotFound, Code: "user_not_found", Message: "user not found"}
	ErrEventNotFound      = &Error{Kind: KindNotFound, Code: "event_not_found", Message: "event not found"}
	ErrCountryNotFound    = &Error{Kind: KindNotFound, Code: "country_not_found", Message: "country not found"}
	ErrStateNotFound      = &Error{Kind: KindNotFound, Code: "state_not_found", Message: "state not found"}

	ErrInvalidQuantity   = &Error{Kind: KindValidation, Code: "invalid_quantity", Message: "quantity must be at least 1"}
	ErrInvalidTicketType = &Error{Kind: KindValidation, Code: "invalid_ticket_type", Message: "invalid ticket type"}
	ErrInvalidEvent      = &Error{Kind: KindValidation, Code: "invalid_event", Message: "invalid event"}
	ErrInvalidState      = &Error{Kind: KindValidation, Code: "invalid_state", Message: "invalid state"}
	ErrInvalidLocation   = &Error{Kind: KindValidation, Code: "invalid_location", Message: "invalid state for the selected country"}

	ErrSoldOut               = &Error{Kind: KindConflict, Code: "sold_out", Message: "ticket type sold out"}
	ErrInsufficientInventory = &Error{Kind: KindConflict, Code: "insufficient_inventory", Message: "not enough tickets available"}
	ErrDuplicateTicketType   = &Error{Kind: KindConflict, Code: "duplicate_ticket_type", Message: "ticket type already exists for this event"}
	ErrLastTicketType        = &Error{Kind: KindConflict, Code: "last_ticket_type", Message: "cannot delete the last ticket type, an event must have at least one ticket type"}
	ErrDuplicateState        = &Error{Kind: KindConflict, Code: "duplicate_state", Message: "state already exists in this country"}
	ErrEventAlreadyActive    = &Error{Kind: KindConflict, Code: "event_already_active", Message: "event is already active"}
	ErrEventAlreadyInactive  = &Error{Kind: KindConflict, Code: "event_already_inactive", Message: "event is already inactive"}
	ErrPersistence           = &Error{Kind: KindPersistence, Code: "persistence_failure", Message: "storage operation failed"}
)

// Persistence wraps a storage error. Context cancellation and deadline
// errors stay reachable through errors.Is on the result.
func Persistence(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stderrors.As(err, &typed) && typed.Kind == KindPersistence {
		return typed
	}
	msg := "failed to " + op
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		msg += " (cancelled)"
	}
	return &Error{Kind: KindPersistence, Code: ErrPersistence.Code, Message: msg, Err: err}
}

// KindOf reports the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// As is a shortcut for errors.As on *Error.
func As(err error) (*Error, bool) {
	var typed *Error
	ok := stderrors.As(err, &typed)
	return typed, ok
}
