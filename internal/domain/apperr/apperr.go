// Package apperr holds the error kinds shared by the catalog and order domains.
// Transport layers classify failures with errors.Is / errors.As against these.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is the root of every "entity does not exist" error.
	ErrNotFound = errors.New("not found")
	// ErrConflict is the root of every lost optimistic or locking race.
	ErrConflict = errors.New("conflict")
)

// ValidationError reports malformed input. Field is empty for request-level
// problems such as an empty item list.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
