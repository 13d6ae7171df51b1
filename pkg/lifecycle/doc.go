// Package lifecycle provides the runtime state machine and worker tracking.
//
// This package manages the lifecycle of an acquisition runtime, including
// state transitions (Uninitialized, Configured, Running, Stopping, Aborting),
// bounded joins of capture workers, and cancellation.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, eventEmitter)
//
//	if !manager.CanStart() {
//	    return ErrInvalidStateForOperation
//	}
//
//	if err := manager.TransitionTo(lifecycle.StateRunning, "start"); err != nil {
//	    return err
//	}
//
//	// ... capture goroutines call AddWorker / WorkerDone ...
//
//	manager.Cancel()
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//
// # State Machine
//
// Valid state transitions:
//   - Uninitialized -> Configured
//   - Configured -> Configured, Running, Uninitialized
//   - Running -> Stopping, Aborting
//   - Stopping -> Configured, Aborting
//   - Aborting -> Configured
//
// Backoff paces retries of operations refused while the runtime is busy.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
