package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("already processed")
	ErrNoTargets     = errors.New("no other members in this chat yet")
	ErrNoSession     = errors.New("no active session")
)

// ValidationError is returned for user input that can be corrected and retried.
type ValidationError struct {
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// StoreError wraps any failure talking to the database. The operation it
// names did not take effect from the caller's point of view.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
