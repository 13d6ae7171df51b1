package propertieswatcher

import "github.com/bft-labs/acquire/pkg/acquire"

// WithPropertiesWatcher returns an acquire Option that reconfigures the
// runtime whenever the properties file changes.
//
// Usage:
//
//	rt, err := acquire.Init(
//	    propertieswatcher.WithPropertiesWatcher(propertieswatcher.Config{
//	        Path:          "props.toml",
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithPropertiesWatcher(cfg Config) acquire.Option {
	return acquire.WithPlugin(New(cfg))
}

// WithDefaultPropertiesWatcher watches path with default timings.
func WithDefaultPropertiesWatcher(path string) acquire.Option {
	return WithPropertiesWatcher(DefaultConfig(path))
}
