package acquire

import (
	"time"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/lifecycle"
	"github.com/bft-labs/acquire/pkg/log"
)

// Option configures optional behavior of a Runtime.
type Option func(*options)

// options holds the optional configuration for a Runtime.
type options struct {
	logger          log.Logger
	reporter        log.Reporter
	eventHandler    EventHandler
	plugins         []Plugin
	clock           clock.Clock
	selectPolicy    device.SelectPolicy
	shutdownTimeout time.Duration
	builtinDevices  bool
}

func defaultOptions() options {
	return options{
		clock:           clock.System{},
		selectPolicy:    device.SelectFirst,
		shutdownTimeout: lifecycle.ShutdownTimeout,
		builtinDevices:  true,
	}
}

// WithReporter routes every log line to fn as (isError, file, line,
// function, message). It is used until Shutdown.
func WithReporter(fn log.Reporter) Option {
	return func(o *options) {
		o.reporter = fn
	}
}

// WithLogger sets a structured logger. It takes precedence over WithReporter.
// Default: no logging.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets the handler for runtime events.
// Handlers are called synchronously and should return quickly.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin. Plugins are initialized by Init in
// registration order and shut down by Shutdown in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		if p != nil {
			o.plugins = append(o.plugins, p)
		}
	}
}

// WithClock sets the clock used by the builtin simulated devices.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		if clk != nil {
			o.clock = clk
		}
	}
}

// WithSelectPolicy sets how DeviceManager().Select treats multiple matches.
// Default: device.SelectFirst.
func WithSelectPolicy(p device.SelectPolicy) Option {
	return func(o *options) {
		o.selectPolicy = p
	}
}

// WithShutdownTimeout bounds how long Stop and Abort wait for capture
// goroutines. Default: lifecycle.ShutdownTimeout.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithoutBuiltinDevices starts with an empty device registry.
func WithoutBuiltinDevices() Option {
	return func(o *options) {
		o.builtinDevices = false
	}
}
