package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/log"
)

// Common lifecycle errors.
var (
	ErrInvalidTransition = domain.ErrInvalidStateForOperation
	ErrShutdownTimeout   = domain.ErrShutdownTimeout
)

// ShutdownTimeout is the default maximum time to wait for capture workers to
// exit.
const ShutdownTimeout = 5 * time.Second

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateUninitialized: {StateConfigured},
	StateConfigured:    {StateConfigured, StateRunning, StateUninitialized},
	StateRunning:       {StateStopping, StateAborting},
	StateStopping:      {StateConfigured, StateAborting},
	StateAborting:      {StateConfigured},
}

// DefaultManager implements Manager with a state machine for lifecycle management.
type DefaultManager struct {
	mu           sync.RWMutex
	state        State
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	logger       log.Logger
	eventEmitter EventEmitter
}

// NewManager creates a new lifecycle manager in StateUninitialized.
func NewManager(logger log.Logger, emitter EventEmitter) *DefaultManager {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &DefaultManager{
		state:        StateUninitialized,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *DefaultManager) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error wrapping ErrInvalidTransition if the transition is not
// valid; the state is left unchanged.
func (l *DefaultManager) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	if !allowed(oldState, newState) {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, oldState, newState)
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanConfigure returns true if Configure() can be called.
func (l *DefaultManager) CanConfigure() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateUninitialized || l.state == StateConfigured
}

// CanStart returns true if Start() can be called.
func (l *DefaultManager) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateConfigured
}

// CanStop returns true if Stop() or Abort() can be called.
func (l *DefaultManager) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning
}

// SetCancel stores the cancel function that ends the running acquisition.
func (l *DefaultManager) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the running acquisition's context.
func (l *DefaultManager) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker increments the worker count.
func (l *DefaultManager) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the worker count.
func (l *DefaultManager) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *DefaultManager) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
		return nil
	case <-t.C:
		l.logger.Warn("capture workers did not exit in time",
			log.Duration("timeout", timeout),
		)
		return ErrShutdownTimeout
	}
}
