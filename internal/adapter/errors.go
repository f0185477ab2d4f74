package adapter

import (
	"errors"
	"fmt"

	"github.com/roach88/convexauth/internal/engine"
)

// Sentinel errors for errors.Is matching.
var (
	// ErrUnsupportedQuery is matched by UnsupportedQueryError.
	ErrUnsupportedQuery = errors.New("unsupported query shape")

	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("record not found")
)

// UnsupportedQueryError reports a where/sortBy/offset combination the
// adapter does not recognize. It is raised before storage is touched and is
// never retried; new shapes get added to the allow-list as they appear.
type UnsupportedQueryError struct {
	Model  string
	Op     string
	Reason string
}

func (e *UnsupportedQueryError) Error() string {
	return fmt.Sprintf("%s on %s: unsupported query shape: %s", e.Op, e.Model, e.Reason)
}

// Is matches ErrUnsupportedQuery.
func (e *UnsupportedQueryError) Is(target error) bool {
	return errors.Is(target, ErrUnsupportedQuery)
}

func unsupported(op, model, format string, args ...any) *UnsupportedQueryError {
	return &UnsupportedQueryError{Model: model, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports a write that violated a declared uniqueness
// constraint, e.g. "user email already exists".
type ConflictError struct {
	Model string
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Model, e.Field)
}

// Is matches engine.ErrUniqueViolation.
func (e *ConflictError) Is(target error) bool {
	return errors.Is(target, engine.ErrUniqueViolation)
}

// NotFoundError reports an update whose target record does not exist.
// Deletes never raise it (idempotent delete).
type NotFoundError struct {
	Model string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: record not found", e.Model)
}

// Is matches ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return errors.Is(target, ErrNotFound)
}

// IsUnsupported reports whether err is an unsupported-query-shape rejection.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupportedQuery)
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, engine.ErrUniqueViolation)
}

// IsNotFound reports whether err is a missing update target.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// wrapConflict converts an engine conflict into the adapter's error type,
// leaving other errors untouched.
func wrapConflict(model string, err error) error {
	var ce *engine.ConflictError
	if errors.As(err, &ce) {
		return &ConflictError{Model: model, Field: ce.Field}
	}
	return err
}
