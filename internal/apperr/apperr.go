// Package apperr defines the error taxonomy shared by the engine's services.
// Every error surfaced to a caller carries a stable machine-readable code
// alongside the human message.
package apperr

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation   Code = "validation"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodePersistence  Code = "persistence"
)

type Error struct {
	Code    Code
	Message string
	Field   string // offending field or rule, when known
	Err     error  // wrapped cause, not shown to callers
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

func ValidationField(field, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Code: CodeConflict, Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// Persistence wraps a store failure. The cause is kept for logs; callers
// only see the generic message.
func Persistence(err error) *Error {
	return &Error{Code: CodePersistence, Message: "a storage error occurred", Err: err}
}

// CodeOf extracts the taxonomy code from err, or CodePersistence when err is
// not a taxonomy error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodePersistence
}

// Is lets errors.Is match two taxonomy errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}
