package acquire

import (
	"context"

	"github.com/bft-labs/acquire/pkg/log"
)

// Plugin extends a Runtime with optional behavior, such as reloading the
// configuration when a file changes.
type Plugin interface {
	// Name identifies the plugin in logs and errors.
	Name() string

	// Initialize is called once by Init. An error aborts Init and shuts down
	// the plugins initialized before it.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called once by Runtime.Shutdown.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to Plugin.Initialize.
type PluginConfig struct {
	// Runtime is the runtime the plugin is attached to.
	Runtime *Runtime

	// Logger is the runtime's logger, tagged with the plugin name.
	Logger log.Logger
}

// BasePlugin provides no-op Initialize and Shutdown for embedding.
type BasePlugin struct{}

// Initialize does nothing.
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown does nothing.
func (BasePlugin) Shutdown(ctx context.Context) error { return nil }
