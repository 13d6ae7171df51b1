package domain

// StreamStatus is the condition of one stream's capture goroutine.
type StreamStatus int

const (
	// StreamIdle means no capture goroutine is running.
	StreamIdle StreamStatus = iota
	// StreamRunning means frames are being captured.
	StreamRunning
	// StreamFinished means the capture goroutine reached its frame limit.
	StreamFinished
	// StreamFaulted means the device failed; only Abort clears it.
	StreamFaulted
)

// String returns the string representation of the status.
func (s StreamStatus) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamRunning:
		return "running"
	case StreamFinished:
		return "finished"
	case StreamFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
