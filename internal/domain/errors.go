package domain

import (
	"errors"
	"fmt"
)

// -----------------------------------------------------------------------------
// Domain Errors
// Services wrap these sentinels with fmt.Errorf("...: %w") and the HTTP and
// MCP edges classify them with errors.Is.
// -----------------------------------------------------------------------------

// Award errors
var (
	// ErrValidation marks malformed mode, topic or history input.
	ErrValidation = errors.New("validation failed")

	// ErrOracleFailure marks an unreachable, rate-limited or unparseable
	// scoring oracle. Callers may retry.
	ErrOracleFailure = errors.New("scoring oracle failure")

	// ErrPersistence marks a progress record that could not be loaded or saved.
	ErrPersistence = errors.New("persistence failure")

	// ErrAlreadyAwarded is returned by stores when the session fingerprint is
	// already recorded for the user.
	ErrAlreadyAwarded = errors.New("session already awarded")
)

// User errors
var (
	ErrUserNotFound = errors.New("user not found")
)

// ValidationError describes which input field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid returns a ValidationError for field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
