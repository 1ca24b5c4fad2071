package model

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is to classify an error returned by any leadflow package.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInconsistentState = errors.New("inconsistent state")
	ErrTransientStore    = errors.New("record store unavailable")
)

// NotFound reports a missing record of the given kind.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %w: %s", kind, ErrNotFound, id)
}

// Invalid reports a rejected input.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Inconsistent reports a violated bootstrap or structural invariant.
func Inconsistent(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInconsistentState, fmt.Sprintf(format, args...))
}

// StoreError wraps a record-store I/O failure. It matches both ErrTransientStore
// and the underlying driver error.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrTransientStore, e.Err}
}

// StoreFailure builds a StoreError for op.
func StoreFailure(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
