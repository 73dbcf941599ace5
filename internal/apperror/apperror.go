// Package apperror defines the domain errors shared by every layer.
//
// Repositories and services return *AppError values wrapping one of the
// sentinels below; callers test them with errors.Is. Only the HTTP layer
// turns them into status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// codes are the machine-readable names clients see in the "error" field.
var codes = map[error]string{
	ErrNotFound:     "not_found",
	ErrValidation:   "validation_error",
	ErrConflict:     "conflict",
	ErrUnauthorized: "unauthorized",
	ErrRateLimited:  "rate_limited",
}

// AppError is an error that is safe to show to the caller.
type AppError struct {
	Err     error  // one of the sentinels above
	Message string // human-readable, returned to the client verbatim
	Field   string // request field at fault; validation errors only
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable type, "internal_error" for an unknown sentinel.
func (e *AppError) Code() string {
	if c, ok := codes[e.Err]; ok {
		return c
	}
	return "internal_error"
}

// NotFound reports a missing resource, e.g. NotFound("code session", id).
func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s %q not found", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Conflict reports a uniqueness violation on field.
func Conflict(field, message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
		Field:   field,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// RateLimited reports a caller over their execution quota.
func RateLimited(message string) *AppError {
	return &AppError{
		Err:     ErrRateLimited,
		Message: message,
	}
}
