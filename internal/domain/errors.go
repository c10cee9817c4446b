package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means the scope has no approved count to learn from.
	ErrInsufficientHistory = errors.New("need at least 1 approved session")

	// ErrTransient marks storage failures that are safe to retry.
	ErrTransient = errors.New("transient storage failure")

	// ErrAlreadyNotified is returned when the per-day notification record already exists.
	ErrAlreadyNotified = errors.New("notification already recorded for today")

	// ErrNotFound is returned when a guide or run is missing.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest is returned for malformed scopes, filters or selections.
	ErrInvalidRequest = errors.New("invalid request")
)

// StorageError wraps a data-access failure with the operation and scope it happened in.
type StorageError struct {
	Op    string
	Scope Scope
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Op, e.Scope, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError returns nil when err is nil.
func NewStorageError(op string, scope Scope, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Scope: scope, Err: err}
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
