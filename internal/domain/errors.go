package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent error conditions in the acquisition runtime.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrValidation is returned when a configuration is rejected. The concrete
	// error is a *ValidationError naming the offending stream and field.
	ErrValidation = errors.New("acquire: invalid configuration")

	// ErrNoMatchingDevice is returned when a device selector matches nothing.
	ErrNoMatchingDevice = errors.New("acquire: no matching device")

	// ErrAmbiguousSelection is returned under the unique selection policy when
	// more than one device matches.
	ErrAmbiguousSelection = errors.New("acquire: ambiguous device selection")

	// ErrInvalidStateForOperation is returned when an operation is not
	// allowed in the current runtime state.
	ErrInvalidStateForOperation = errors.New("acquire: invalid state for operation")

	// ErrOverflowDropped marks a frame discarded because the buffer was full.
	// It is counted and logged, never returned to consumers.
	ErrOverflowDropped = errors.New("acquire: frame dropped on overflow")

	// ErrPartialFrameRelease is returned when a consumer releases a byte count
	// that does not end on a frame boundary.
	ErrPartialFrameRelease = errors.New("acquire: release does not end on a frame boundary")

	// ErrDeviceFault is returned once a stream's device has failed.
	ErrDeviceFault = errors.New("acquire: device fault")

	// ErrTimeout is returned when a harness deadline elapses.
	ErrTimeout = errors.New("acquire: timeout")

	// ErrShutdownTimeout is returned when capture goroutines fail to exit in time.
	ErrShutdownTimeout = errors.New("acquire: shutdown timeout")

	// ErrConsumerOwned is returned by MapRead when the stream drains itself
	// into storage.
	ErrConsumerOwned = errors.New("acquire: stream consumer is owned by the pipeline")
)

// ValidationError describes one rejected configuration field.
// Stream is -1 for runtime-wide fields.
type ValidationError struct {
	Stream int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Stream < 0 {
		return fmt.Sprintf("acquire: invalid configuration: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("acquire: invalid configuration: stream %d: %s: %s", e.Stream, e.Field, e.Reason)
}

// Is reports ErrValidation as the sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a *ValidationError.
func Invalid(stream int, field, format string, args ...any) error {
	return &ValidationError{Stream: stream, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// DeviceFaultError wraps an error raised by a stream's device.
type DeviceFaultError struct {
	Stream int
	Device string
	Err    error
}

func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("acquire: stream %d: device %q: %v", e.Stream, e.Device, e.Err)
}

// Is reports ErrDeviceFault as the sentinel.
func (e *DeviceFaultError) Is(target error) bool {
	return target == ErrDeviceFault
}

func (e *DeviceFaultError) Unwrap() error { return e.Err }
