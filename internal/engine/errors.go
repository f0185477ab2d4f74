package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	// ErrUniqueViolation is matched by ConflictError.
	ErrUniqueViolation = errors.New("unique constraint violated")

	// ErrInvalidCursor is returned when a pagination cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid pagination cursor")
)

// ConflictError reports an insert or patch that violated a declared
// uniqueness constraint.
type ConflictError struct {
	Table string
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("unique constraint violated on %s.%s", e.Table, e.Field)
}

// Is matches ErrUniqueViolation.
func (e *ConflictError) Is(target error) bool {
	return errors.Is(target, ErrUniqueViolation)
}

// IsConflict reports whether err is a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}
