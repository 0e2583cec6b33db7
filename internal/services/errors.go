package services

import (
	"errors"
	"fmt"

	"glammatch-backend/internal/store"
)

// Error taxonomy surfaced by the messaging services. Handlers map these to
// HTTP status codes; callers test with errors.Is. Causes are wrapped, never
// swallowed.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrUnavailable     = errors.New("backend unavailable")
	ErrConflict        = errors.New("conflict")
)

// classifyStoreError maps a storage failure into the service taxonomy.
// Anything that is not a definite not-found or duplicate is treated as a
// transient backend failure the caller may retry.
func classifyStoreError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, op)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrConflict, op)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
