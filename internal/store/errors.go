package store

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an unknown event, entry, or template id.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a state transition raced with a concurrent update.
// Callers should re-read before retrying the transition.
var ErrConflict = errors.New("state conflict")

// ValidationError rejects a malformed admission request synchronously.
// A rejected event is never enqueued.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
