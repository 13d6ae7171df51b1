package acquire

import (
	"time"

	"github.com/bft-labs/acquire/pkg/lifecycle"
)

// State is the lifecycle state of a Runtime.
type State = lifecycle.State

// Runtime states.
const (
	StateUninitialized = lifecycle.StateUninitialized
	StateConfigured    = lifecycle.StateConfigured
	StateRunning       = lifecycle.StateRunning
	StateStopping      = lifecycle.StateStopping
	StateAborting      = lifecycle.StateAborting
)

// StateChangeEvent is emitted on every state transition.
type StateChangeEvent struct {
	Previous  State
	Current   State
	Reason    string
	Timestamp time.Time
}

// RunEvent is emitted when an acquisition starts or ends.
type RunEvent struct {
	RunID     string
	Streams   []int
	Timestamp time.Time
}

// StreamFaultEvent is emitted the first time a stream's device fails.
type StreamFaultEvent struct {
	RunID     string
	Stream    int
	Err       error
	Timestamp time.Time
}

// EventHandler receives runtime events. Methods are called synchronously,
// some from capture goroutines, and must not call back into the Runtime.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnRunStarted(event RunEvent)
	OnRunEnded(event RunEvent)
	OnStreamFault(event StreamFaultEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

// OnStateChange does nothing.
func (BaseEventHandler) OnStateChange(StateChangeEvent) {}

// OnRunStarted does nothing.
func (BaseEventHandler) OnRunStarted(RunEvent) {}

// OnRunEnded does nothing.
func (BaseEventHandler) OnRunEnded(RunEvent) {}

// OnStreamFault does nothing.
func (BaseEventHandler) OnStreamFault(StreamFaultEvent) {}

// eventEmitterWrapper adapts an EventHandler to lifecycle.EventEmitter.
type eventEmitterWrapper struct {
	handler EventHandler
	now     func() time.Time
}

func (e *eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous:  previous,
		Current:   current,
		Reason:    reason,
		Timestamp: e.now(),
	})
}
