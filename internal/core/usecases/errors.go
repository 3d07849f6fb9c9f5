package usecases

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned when the range start sorts after its end.
var ErrInvalidRange = errors.New("range start is after range end")

// StoreError wraps a failure of the snapshot store. It always aborts a run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// DecodeError reports a snapshot blob that does not match the location schema.
type DecodeError struct {
	Timestamp string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode snapshot %q: %v", e.Timestamp, e.Err)
}
func (e *DecodeError) Unwrap() error { return e.Err }

// SerializationError reports a failure to write the final document.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string { return fmt.Sprintf("serialize output: %v", e.Err) }
func (e *SerializationError) Unwrap() error { return e.Err }
