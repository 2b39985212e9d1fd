package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested uid is absent in the target
	// registry. It is surfaced to callers and never retried.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument indicates a null/empty uid or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShutdown indicates the operation observed the process-wide
	// cancellation. It is a soft signal, not a failure.
	ErrShutdown = errors.New("shutting down")
)

// NotFoundError builds a typed not-found error naming the entity kind and
// uid, e.g. "component not found: lamp.1".
func NotFoundError(kind, uid string) error {
	return fmt.Errorf("%s %w: %s", kind, ErrNotFound, uid)
}

// InvalidUidError builds a typed invalid-argument error for a missing or
// empty identifier.
func InvalidUidError(what string) error {
	return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, what)
}
