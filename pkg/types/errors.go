package types

import (
	"errors"
	"fmt"
	"strings"
)

// Record and blob operation errors.
var (
	ErrNotFound       = errors.New("record not found")
	ErrInvalidID      = errors.New("invalid record ID")
	ErrValidation     = errors.New("validation failed")
	ErrPersistence    = errors.New("persistence failed")
	ErrUnknownField   = errors.New("unknown field")
	ErrUnsupported    = errors.New("operation not supported")
	ErrInvalidPath    = errors.New("invalid blob path")
	ErrCollectionName = errors.New("unknown collection")
)

// Session errors.
var (
	ErrUnauthenticated = errors.New("not signed in")
	ErrForbidden       = errors.New("role not permitted")
	ErrInvalidToken    = errors.New("invalid session token")
)

// FieldError reports a problem with a single field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when caller-supplied row data fails
// required-field checks. It is raised before any store call.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field errors.
func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError wraps a failed collaborator call (network, auth, server,
// disk). It unwraps to the cause so errors.Is(err, ErrNotFound) still works.
type PersistenceError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *PersistenceError) Error() string {
	target := e.Collection
	if e.ID != "" {
		target += "/" + e.ID
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPersistence) match.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
