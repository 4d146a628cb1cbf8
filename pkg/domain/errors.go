package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by core operations.
type ErrorKind int

// Error kinds. Every core failure carries exactly one of these.
const (
	KindNotFound ErrorKind = iota + 1
	KindInvalidArgument
	KindOutOfRange
	KindModelIncomplete
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidArgument:
		return "invalid argument"
	case KindOutOfRange:
		return "out of range"
	case KindModelIncomplete:
		return "model incomplete"
	default:
		return "unknown"
	}
}

// Sentinel values usable with errors.Is.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrOutOfRange      = &Error{Kind: KindOutOfRange}
	ErrModelIncomplete = &Error{Kind: KindModelIncomplete}
)

// Error is the typed failure returned by model operations.
type Error struct {
	Kind    ErrorKind
	Op      string
	Entity  EntityType
	ID      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Entity != "" {
		msg = fmt.Sprintf("%s %s %s", e.Entity, e.ID, e.Kind)
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, ErrNotFound) matches any
// NotFound error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NotFound builds a NotFound error for the given entity.
func NotFound(op string, entity EntityType, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Entity: entity, ID: id}
}

// InvalidArgument builds an InvalidArgument error.
func InvalidArgument(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Message: fmt.Sprintf(format, args...)}
}

// OutOfRange builds an OutOfRange error.
func OutOfRange(op, format string, args ...any) error {
	return &Error{Kind: KindOutOfRange, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ModelIncomplete builds a ModelIncomplete error for a model.
func ModelIncomplete(op, model, format string, args ...any) error {
	return &Error{Kind: KindModelIncomplete, Op: op, Entity: EntityModel, ID: model, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the error kind, returning 0 for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
