package portal

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound                = errors.New("not found")
	ErrSlotNotAvailable        = errors.New("slot is not available")
	ErrSlotConflict            = errors.New("slot overlaps an existing slot")
	ErrSlotLimitReached        = errors.New("daily slot limit reached for doctor")
	ErrNotADoctor              = errors.New("user is not a doctor")
	ErrRequestNotPending       = errors.New("request is not pending")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInvalidCredentials      = errors.New("invalid credentials or role mismatch")
)

// NotFoundError reports an id that did not resolve to an entity.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// PersistenceError reports a failed snapshot read or write. A failed
// write leaves the in-memory mutation in place.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
