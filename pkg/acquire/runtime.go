package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/acquire/internal/adapters/camera"
	"github.com/bft-labs/acquire/internal/adapters/storage"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/internal/pipeline"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/lifecycle"
	"github.com/bft-labs/acquire/pkg/log"
	"github.com/bft-labs/acquire/pkg/ring"
)

// StreamStats is a snapshot of one stream's counters.
type StreamStats = pipeline.Stats

// StreamStatus is the run status of one stream.
type StreamStatus = domain.StreamStatus

// Stream statuses.
const (
	StreamIdle     = domain.StreamIdle
	StreamRunning  = domain.StreamRunning
	StreamFinished = domain.StreamFinished
	StreamFaulted  = domain.StreamFaulted
)

// Runtime is an acquisition runtime. It owns the device bindings of every
// configured stream and, while running, one capture pipeline per stream.
//
// Runtime is safe for concurrent use. MapRead and UnmapRead on one stream
// must come from a single consumer.
type Runtime struct {
	opts      options
	logger    log.Logger
	devices   *device.Manager
	lifecycle *lifecycle.DefaultManager
	sessionID string

	// mu serializes Configure, Start, and the state changes of Stop, Abort,
	// and Shutdown.
	mu       sync.Mutex
	props    Properties
	bindings [MaxStreams]binding
	plugins  []Plugin
	closed   bool

	smu     sync.RWMutex
	streams [MaxStreams]*pipeline.Stream
	runID   string
}

// binding is an open camera and storage device pair of one stream slot.
type binding struct {
	cameraID  device.Identifier
	camera    device.Camera
	storageID device.Identifier
	storage   device.Storage
}

// Init creates a Runtime in StateUninitialized with the builtin simulated
// devices registered, and initializes the plugins.
func Init(opts ...Option) (*Runtime, error) {
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil && o.reporter != nil {
		logger = log.NewReporterLogger(o.reporter)
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	r := &Runtime{
		opts:      o,
		logger:    logger,
		devices:   device.NewManager(device.WithSelectPolicy(o.selectPolicy)),
		sessionID: uuid.NewString(),
	}
	r.lifecycle = lifecycle.NewManager(logger, &eventEmitterWrapper{
		handler: o.eventHandler,
		now:     o.clock.Now,
	})

	if o.builtinDevices {
		if err := camera.Register(r.devices, o.clock); err != nil {
			return nil, fmt.Errorf("register cameras: %w", err)
		}
		if err := storage.Register(r.devices, o.clock); err != nil {
			return nil, fmt.Errorf("register storage: %w", err)
		}
	}

	if err := r.initPlugins(); err != nil {
		return nil, err
	}

	logger.Info("runtime initialized",
		log.String("session_id", r.sessionID),
		log.Int("devices", len(r.devices.List(device.KindNone))),
		log.Int("plugins", len(r.plugins)),
	)
	return r, nil
}

func (r *Runtime) initPlugins() error {
	ctx := context.Background()
	for _, p := range r.opts.plugins {
		cfg := PluginConfig{
			Runtime: r,
			Logger:  log.With(r.logger, log.String("plugin", p.Name())),
		}
		if err := p.Initialize(ctx, cfg); err != nil {
			r.shutdownPlugins()
			return fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		r.plugins = append(r.plugins, p)
		r.logger.Debug("plugin initialized", log.String("plugin", p.Name()))
	}
	return nil
}

// shutdownPlugins shuts down initialized plugins in reverse order.
func (r *Runtime) shutdownPlugins() error {
	ctx, cancel := context.WithTimeout(context.Background(), r.opts.shutdownTimeout)
	defer cancel()

	var errs []error
	for i := len(r.plugins) - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Warn("plugin shutdown failed", log.String("plugin", p.Name()), log.Err(err))
			errs = append(errs, fmt.Errorf("shutdown plugin %s: %w", p.Name(), err))
		}
	}
	r.plugins = nil
	return errors.Join(errs...)
}

// DeviceManager returns the registry used to select devices.
func (r *Runtime) DeviceManager() *device.Manager {
	return r.devices
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	return r.lifecycle.State()
}

// SessionID identifies this Runtime in logs and storage sidecars.
func (r *Runtime) SessionID() string {
	return r.sessionID
}

// RunID identifies the most recent Start. It is empty before the first.
func (r *Runtime) RunID() string {
	r.smu.RLock()
	defer r.smu.RUnlock()
	return r.runID
}

func (r *Runtime) invalidState(op string) error {
	if r.closed {
		return fmt.Errorf("%w: %s after shutdown", ErrInvalidStateForOperation, op)
	}
	return fmt.Errorf("%w: %s in state %s", ErrInvalidStateForOperation, op, r.lifecycle.State())
}

// GetConfiguration returns the committed configuration, with the settings
// the devices reported. Before the first Configure it returns the zero
// Properties.
func (r *Runtime) GetConfiguration() (Properties, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.lifecycle.CanConfigure() {
		return Properties{}, r.invalidState("get configuration")
	}
	return r.props, nil
}

// Configure validates props, binds and configures the devices of every
// enabled stream, and commits the result. It returns the configuration in
// effect, which may differ from props where a device adjusted a setting.
//
// On error neither the state nor the previous configuration changes.
func (r *Runtime) Configure(props Properties) (Properties, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.lifecycle.CanConfigure() {
		return Properties{}, r.invalidState("configure")
	}
	if err := r.checkJoined("configure"); err != nil {
		return Properties{}, err
	}
	for i, v := range props.Video {
		if err := v.validate(i); err != nil {
			return Properties{}, err
		}
	}

	next := props
	var (
		bound  [MaxStreams]binding
		opened []device.Device
	)
	fail := func(err error) (Properties, error) {
		for _, d := range opened {
			if cerr := d.Close(); cerr != nil {
				r.logger.Warn("close device", log.String("device", d.Name()), log.Err(cerr))
			}
		}
		r.logger.Warn("configuration rejected", log.Err(err))
		return Properties{}, err
	}

	for i := range next.Video {
		v := &next.Video[i]
		if !v.Enabled() {
			continue
		}
		b := r.bindings[i]
		if b.camera == nil || b.cameraID != v.Camera.Identifier {
			cam, err := r.devices.OpenCamera(v.Camera.Identifier)
			if err != nil {
				return fail(fmt.Errorf("stream %d camera: %w", i, err))
			}
			opened = append(opened, cam)
			b.camera, b.cameraID = cam, v.Camera.Identifier
		}
		if b.storage == nil || b.storageID != v.Storage.Identifier {
			st, err := r.devices.OpenStorage(v.Storage.Identifier)
			if err != nil {
				return fail(fmt.Errorf("stream %d storage: %w", i, err))
			}
			opened = append(opened, st)
			b.storage, b.storageID = st, v.Storage.Identifier
		}

		if err := configureDevices(i, b, v); err != nil {
			return fail(err)
		}
		if want, got := props.Video[i].Camera.Settings.ExposureTimeUs, v.Camera.Settings.ExposureTimeUs; want != got {
			r.logger.Info("camera adjusted exposure",
				log.Stream(i),
				log.Float64("requested_us", want),
				log.Float64("exposure_time_us", got),
			)
		}
		if err := v.sizeBuffer(i); err != nil {
			return fail(err)
		}
		bound[i] = b
	}

	for i, old := range r.bindings {
		if old.camera != nil && old.camera != bound[i].camera {
			r.closeDevice(old.camera)
		}
		if old.storage != nil && old.storage != bound[i].storage {
			r.closeDevice(old.storage)
		}
	}
	r.bindings = bound
	r.props = next

	reason := "configure"
	if r.lifecycle.State() == StateConfigured {
		reason = "reconfigure"
	}
	if err := r.lifecycle.TransitionTo(StateConfigured, reason); err != nil {
		return Properties{}, err
	}
	return next, nil
}

// configureDevices applies v's settings to b and writes back what the
// devices report.
func configureDevices(i int, b binding, v *VideoStream) error {
	cam, err := b.camera.Configure(v.Camera.Settings)
	if err != nil {
		return atStream(i, err)
	}
	v.Camera.Settings = cam

	st, err := b.storage.Configure(v.Storage.Settings, device.StreamDescription{
		Shape: cam.FrameShape(),
		Type:  cam.PixelType,
	})
	if err != nil {
		return atStream(i, err)
	}
	v.Storage.Settings = st
	return nil
}

func (r *Runtime) closeDevice(d device.Device) {
	if err := d.Close(); err != nil {
		r.logger.Warn("close device", log.String("device", d.Name()), log.Err(err))
	}
}

// Start launches one capture pipeline per enabled stream. Either every
// stream starts or none does and the runtime stays Configured. ctx bounds
// device startup; the pipelines run until Stop or Abort.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !r.lifecycle.CanStart() {
		return r.invalidState("start")
	}
	if err := r.checkJoined("start"); err != nil {
		return err
	}

	var enabled []int
	for i, v := range r.props.Video {
		if v.Enabled() {
			enabled = append(enabled, i)
		}
	}
	if len(enabled) == 0 {
		return domain.Invalid(-1, "video", "no stream is enabled")
	}

	runID := uuid.NewString()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	logger := log.With(r.logger, log.String("run_id", runID))

	var streams [MaxStreams]*pipeline.Stream
	abortStarted := func() {
		cancel()
		live := false
		for _, s := range streams {
			if s != nil {
				if err := s.Abort(r.opts.shutdownTimeout); err != nil {
					logger.Warn("abort partially started stream", log.Stream(s.Index()), log.Err(err))
				}
				live = live || s.Live()
			}
		}
		if live {
			r.smu.Lock()
			r.streams = streams
			r.runID = runID
			r.smu.Unlock()
		}
	}

	for _, i := range enabled {
		if err := ctx.Err(); err != nil {
			abortStarted()
			return err
		}
		v := r.props.Video[i]
		b := r.bindings[i]
		if err := configureDevices(i, b, &v); err != nil {
			abortStarted()
			return err
		}

		s, err := pipeline.New(pipeline.Config{
			Index:         i,
			Camera:        b.camera,
			CameraName:    b.camera.Name(),
			CameraProps:   v.Camera.Settings,
			Storage:       b.storage,
			StorageName:   b.storage.Name(),
			MaxFrameCount: v.MaxFrameCount,
			Buffer: ring.Config{
				Capacity:     v.Buffer.CapacityBytes,
				Policy:       v.Buffer.Overflow,
				BlockTimeout: v.Buffer.BlockTimeout,
			},
			AutoDrain: v.Buffer.AutoDrain,
			Logger:    logger,
			Workers:   r.lifecycle,
			Clock:     r.opts.clock,
			OnFault:   r.faultHandler(runID, i),
		})
		if err != nil {
			abortStarted()
			return err
		}
		if err := s.Start(runCtx); err != nil {
			abortStarted()
			return err
		}
		streams[i] = s
	}

	r.lifecycle.SetCancel(cancel)
	r.smu.Lock()
	r.streams = streams
	r.runID = runID
	r.smu.Unlock()

	if err := r.lifecycle.TransitionTo(StateRunning, "start"); err != nil {
		abortStarted()
		return err
	}
	if h := r.opts.eventHandler; h != nil {
		h.OnRunStarted(RunEvent{RunID: runID, Streams: enabled, Timestamp: r.opts.clock.Now()})
	}
	logger.Info("acquisition started", log.Int("streams", len(enabled)))
	return nil
}

func (r *Runtime) faultHandler(runID string, stream int) func(error) {
	return func(err error) {
		if h := r.opts.eventHandler; h != nil {
			h.OnStreamFault(StreamFaultEvent{
				RunID:     runID,
				Stream:    stream,
				Err:       err,
				Timestamp: r.opts.clock.Now(),
			})
		}
	}
}

// active returns the streams of the current run.
func (r *Runtime) active() []*pipeline.Stream {
	r.smu.RLock()
	defer r.smu.RUnlock()
	var out []*pipeline.Stream
	for _, s := range r.streams {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// live returns the slots whose pipeline from the last run still has a
// goroutine running.
func (r *Runtime) live() [MaxStreams]bool {
	r.smu.RLock()
	defer r.smu.RUnlock()
	var out [MaxStreams]bool
	for i, s := range r.streams {
		out[i] = s != nil && s.Live()
	}
	return out
}

// checkJoined fails while a pipeline that outlived its shutdown timeout may
// still call into the bound devices.
func (r *Runtime) checkJoined(op string) error {
	for i, l := range r.live() {
		if l {
			return fmt.Errorf("%w: %s while stream %d capture is still running", ErrInvalidStateForOperation, op, i)
		}
	}
	return nil
}

// Stop halts capture on every stream, forwards the frames still in the
// buffers to storage, stops the devices, and returns to Configured.
func (r *Runtime) Stop() error {
	r.mu.Lock()
	if r.closed || !r.lifecycle.CanStop() {
		err := r.invalidState("stop")
		r.mu.Unlock()
		return err
	}
	if err := r.lifecycle.TransitionTo(StateStopping, "stop"); err != nil {
		r.mu.Unlock()
		return err
	}
	streams := r.active()
	r.mu.Unlock()

	timeout := r.opts.shutdownTimeout
	var g errgroup.Group
	for _, s := range streams {
		g.Go(func() error { return s.Stop(timeout) })
	}
	err := g.Wait()
	if err == nil {
		err = r.lifecycle.WaitWithTimeout(timeout)
	}
	r.lifecycle.Cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	// A concurrent Abort owns the final transition.
	if r.lifecycle.State() == StateStopping {
		if terr := r.lifecycle.TransitionTo(StateConfigured, "stopped"); terr != nil {
			return errors.Join(err, terr)
		}
		r.runEnded()
	}
	return err
}

// Abort cancels capture on every stream, discards unread frames, stops the
// devices, and returns to Configured. Goroutines that do not exit within the
// shutdown timeout yield ErrShutdownTimeout. Abort outside Running and
// Stopping does nothing.
func (r *Runtime) Abort() error {
	r.mu.Lock()
	if st := r.lifecycle.State(); st != StateRunning && st != StateStopping {
		r.mu.Unlock()
		return nil
	}
	if err := r.lifecycle.TransitionTo(StateAborting, "abort"); err != nil {
		r.mu.Unlock()
		return err
	}
	streams := r.active()
	r.mu.Unlock()

	r.lifecycle.Cancel()
	timeout := r.opts.shutdownTimeout
	var g errgroup.Group
	for _, s := range streams {
		g.Go(func() error { return s.Abort(timeout) })
	}
	err := g.Wait()
	if err == nil {
		err = r.lifecycle.WaitWithTimeout(timeout)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if terr := r.lifecycle.TransitionTo(StateConfigured, "aborted"); terr != nil {
		return errors.Join(err, terr)
	}
	r.runEnded()
	return err
}

func (r *Runtime) runEnded() {
	h := r.opts.eventHandler
	if h == nil {
		return
	}
	var streams []int
	for _, s := range r.active() {
		streams = append(streams, s.Index())
	}
	h.OnRunEnded(RunEvent{RunID: r.RunID(), Streams: streams, Timestamp: r.opts.clock.Now()})
}

// Shutdown aborts a running acquisition, closes every device, shuts down the
// plugins in reverse order, and leaves the runtime Uninitialized. Further
// calls return nil; other operations fail with ErrInvalidStateForOperation.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	var errs []error
	if err := r.Abort(); err != nil {
		errs = append(errs, err)
	}

	r.mu.Lock()
	r.closed = true
	live := r.live()
	for i, b := range r.bindings {
		if live[i] {
			r.logger.Warn("device left open, capture still running", log.Stream(i))
			continue
		}
		if b.camera != nil {
			r.closeDevice(b.camera)
		}
		if b.storage != nil {
			r.closeDevice(b.storage)
		}
	}
	r.bindings = [MaxStreams]binding{}
	r.props = Properties{}
	if r.lifecycle.State() == StateConfigured {
		if err := r.lifecycle.TransitionTo(StateUninitialized, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	r.mu.Unlock()

	r.smu.Lock()
	r.streams = [MaxStreams]*pipeline.Stream{}
	r.smu.Unlock()

	if err := r.shutdownPlugins(); err != nil {
		errs = append(errs, err)
	}
	r.logger.Info("runtime shut down", log.String("session_id", r.sessionID))
	return errors.Join(errs...)
}

// stream returns the pipeline of slot i of the current run.
func (r *Runtime) stream(i int) (*pipeline.Stream, error) {
	if i < 0 || i >= MaxStreams {
		return nil, domain.Invalid(i, "stream", "index out of range [0, %d)", MaxStreams)
	}
	r.smu.RLock()
	s := r.streams[i]
	r.smu.RUnlock()
	if s == nil {
		return nil, domain.Invalid(i, "stream", "not enabled in the current run")
	}
	return s, nil
}

// MapRead returns every frame of stream i not yet released. It never
// blocks; the range is empty when nothing is available. The frames stay
// valid and unchanged until UnmapRead.
func (r *Runtime) MapRead(i int) (frame.Range, error) {
	if st := r.lifecycle.State(); st != StateRunning {
		return frame.Range{}, fmt.Errorf("%w: map read in state %s", ErrInvalidStateForOperation, st)
	}
	s, err := r.stream(i)
	if err != nil {
		return frame.Range{}, err
	}
	return s.MapRead()
}

// UnmapRead releases the first n bytes of stream i's mapped range to
// storage. n must be the summed size of a prefix of the mapped frames.
func (r *Runtime) UnmapRead(i int, n int) error {
	if st := r.lifecycle.State(); st != StateRunning {
		return fmt.Errorf("%w: unmap read in state %s", ErrInvalidStateForOperation, st)
	}
	s, err := r.stream(i)
	if err != nil {
		return err
	}
	return s.UnmapRead(n)
}

// Stats returns the counters of stream i for the current or most recent run.
func (r *Runtime) Stats(i int) (StreamStats, error) {
	s, err := r.stream(i)
	if err != nil {
		return StreamStats{}, err
	}
	return s.Stats(), nil
}

// validateModuleVersions checks that all module versions are compatible.
// This is called during Init to ensure consistent module versions.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"acquire":   {Version, MinCompatibleVersion},
		"frame":     {frame.Version, frame.MinCompatibleVersion},
		"ring":      {ring.Version, ring.MinCompatibleVersion},
		"device":    {device.Version, device.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}

	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
