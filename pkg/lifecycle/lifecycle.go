package lifecycle

import "time"

// State represents the lifecycle state of an acquisition runtime.
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	StateRunning
	StateStopping
	StateAborting
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateConfigured:
		return "Configured"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateAborting:
		return "Aborting"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine for a runtime.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanConfigure returns true if Configure() can be called.
	CanConfigure() bool

	// CanStart returns true if Start() can be called.
	CanStart() bool

	// CanStop returns true if Stop() or Abort() can be called.
	CanStop() bool

	// TransitionTo attempts to transition to a new state.
	// Returns an error if the transition is not valid.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout waits for all workers to finish with a timeout.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()
}
