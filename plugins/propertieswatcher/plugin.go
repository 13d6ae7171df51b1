// Package propertieswatcher reconfigures a runtime when its TOML properties
// file changes on disk.
package propertieswatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/lifecycle"
	"github.com/bft-labs/acquire/pkg/log"
)

// Plugin watches a properties file and applies it with Runtime.Configure.
// Changes made while the runtime is acquiring are held back and retried
// until the runtime returns to a configurable state.
type Plugin struct {
	mu sync.Mutex

	path             string
	retryInterval    time.Duration
	maxRetryInterval time.Duration
	debounceDelay    time.Duration
	onReload      func(acquire.Properties, error)

	runtime  *acquire.Runtime
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the properties watcher plugin.
type Config struct {
	// Path is the properties file to watch. Required.
	Path string

	// RetryInterval is the first delay between attempts while the runtime
	// is busy. Later delays double up to MaxRetryInterval.
	// Default: 500 milliseconds
	RetryInterval time.Duration

	// MaxRetryInterval caps the retry delay.
	// Default: 10 seconds
	MaxRetryInterval time.Duration

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// OnReload, if set, is called after every reload attempt that reached a
	// final outcome: the applied properties, or the error that rejected them.
	OnReload func(acquire.Properties, error)
}

// DefaultConfig returns a Config for path with default timings.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		RetryInterval:    500 * time.Millisecond,
		MaxRetryInterval: 10 * time.Second,
		DebounceDelay:    100 * time.Millisecond,
	}
}

// New creates a new properties watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = 10 * time.Second
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:             cfg.Path,
		retryInterval:    cfg.RetryInterval,
		maxRetryInterval: cfg.MaxRetryInterval,
		debounceDelay:    cfg.DebounceDelay,
		onReload:         cfg.OnReload,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "propertieswatcher"
}

// Initialize starts watching the directory holding the properties file, so
// saves that rename a temporary file over it are seen.
func (p *Plugin) Initialize(ctx context.Context, cfg acquire.PluginConfig) error {
	if p.path == "" {
		return fmt.Errorf("propertieswatcher: path is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("propertieswatcher: create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("propertieswatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	p.mu.Lock()
	p.runtime = cfg.Runtime
	p.logger = cfg.Logger
	p.mu.Unlock()

	// Initialize's ctx only covers startup; the loop lives until Shutdown.
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	p.logger.Info("properties watcher initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher and waits for an in-flight reload.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	p.stopDebounce()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("properties watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopDebounce()
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.reloadWithRetry(ctx)
	})
}

// stopDebounce cancels a pending reload. p.mu must be held.
func (p *Plugin) stopDebounce() {
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.debounce = nil
}

// reloadWithRetry applies the file, retrying while the runtime is in a state
// that does not accept configuration.
func (p *Plugin) reloadWithRetry(ctx context.Context) {
	backoff := lifecycle.NewBackoff(p.retryInterval, p.maxRetryInterval)
	for attempt := 0; ; attempt++ {
		props, err := p.reload()
		if !errors.Is(err, acquire.ErrInvalidStateForOperation) {
			if err != nil {
				p.logger.Error("properties rejected", log.String("path", p.path), log.Err(err))
			} else {
				p.logger.Info("properties applied", log.String("path", p.path), log.Int("retries", attempt))
			}
			if p.onReload != nil {
				p.onReload(props, err)
			}
			return
		}

		if attempt == 0 {
			p.logger.Warn("properties changed while busy, retrying",
				log.String("state", p.runtime.State().String()))
		}
		if backoff.Wait(ctx) != nil {
			return
		}
	}
}

func (p *Plugin) reload() (acquire.Properties, error) {
	pf, err := acquire.LoadPropertiesFile(p.path)
	if err != nil {
		return acquire.Properties{}, err
	}
	props, err := pf.Resolve(p.runtime.DeviceManager())
	if err != nil {
		return acquire.Properties{}, err
	}
	return p.runtime.Configure(props)
}

// Ensure Plugin implements acquire.Plugin.
var _ acquire.Plugin = (*Plugin)(nil)
