package acquire

import "github.com/bft-labs/acquire/internal/domain"

// Errors returned by the runtime. All are matched with errors.Is.
var (
	ErrValidation               = domain.ErrValidation
	ErrNoMatchingDevice         = domain.ErrNoMatchingDevice
	ErrAmbiguousSelection       = domain.ErrAmbiguousSelection
	ErrInvalidStateForOperation = domain.ErrInvalidStateForOperation
	ErrOverflowDropped          = domain.ErrOverflowDropped
	ErrPartialFrameRelease      = domain.ErrPartialFrameRelease
	ErrDeviceFault              = domain.ErrDeviceFault
	ErrTimeout                  = domain.ErrTimeout
	ErrShutdownTimeout          = domain.ErrShutdownTimeout
	ErrConsumerOwned            = domain.ErrConsumerOwned
)

type (
	// ValidationError names the stream and field a Configure call rejected.
	// Stream is -1 for runtime-wide fields.
	ValidationError = domain.ValidationError

	// DeviceFaultError wraps the failure of a stream's device.
	DeviceFaultError = domain.DeviceFaultError
)
