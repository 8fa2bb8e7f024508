package gcj

import (
	"errors"
	"fmt"
)

// ErrorType classifies index errors.
type ErrorType string

const (
	// ErrorTypeNotFound marks an absent id. Query paths report absence as
	// an empty result instead; this type only surfaces from accessors
	// such as Interner.At.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict marks an internal consistency violation: a key
	// re-added with a different target, or a link-set requested with a
	// membership that differs from the stored one.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeMalformedInput marks unusable input: a bad embedded unit
	// list, or a persisted file that should exist but cannot be read.
	ErrorTypeMalformedInput ErrorType = "malformed_input"

	// ErrorTypeIO marks a failure to read or write the store.
	ErrorTypeIO ErrorType = "io"
)

// Sentinels for errors.Is.
var (
	ErrNotFound       = &Error{Type: ErrorTypeNotFound}
	ErrConflict       = &Error{Type: ErrorTypeConflict}
	ErrMalformedInput = &Error{Type: ErrorTypeMalformedInput}
	ErrIO             = &Error{Type: ErrorTypeIO}
)

// Error is the error type returned by the index.
type Error struct {
	Type ErrorType
	Op   string
	Path string
	Err  error
}

func newError(t ErrorType, op string, err error) *Error {
	return &Error{Type: t, Op: op, Err: err}
}

func conflictf(op, format string, args ...any) *Error {
	return newError(ErrorTypeConflict, op, fmt.Errorf(format, args...))
}

func notFoundf(op, format string, args ...any) *Error {
	return newError(ErrorTypeNotFound, op, fmt.Errorf(format, args...))
}

// WithPath attaches the store file the error concerns.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Type)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, ErrConflict)
// works on wrapped errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// IsConflict reports whether err is a consistency violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsMalformedInput reports whether err is a recoverable input error.
func IsMalformedInput(err error) bool {
	return errors.Is(err, ErrMalformedInput)
}
