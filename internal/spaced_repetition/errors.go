package spaced_repetition

import (
	"errors"
	"fmt"
)

// ErrInvalidStage is returned when a stage outside 1..6 is looked up.
// It signals a caller bug and must not be retried.
var ErrInvalidStage = errors.New("invalid stage")

// StoreError wraps a failure reported by a completion or challenge store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
