// Package pipeline runs one video stream: a capture goroutine moves frames
// from a camera into a ring buffer, and the consumer side forwards released
// frames to storage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/log"
	"github.com/bft-labs/acquire/pkg/ring"
)

// DefaultPollInterval is how long the drain goroutine idles on an empty
// buffer.
const DefaultPollInterval = 5 * time.Millisecond

// Workers tracks goroutines started by a stream.
type Workers interface {
	AddWorker()
	WorkerDone()
}

// Config describes one stream.
type Config struct {
	// Index is the stream's slot in the runtime configuration.
	Index int

	Camera     device.Camera
	CameraName string
	// CameraProps are the settings the camera reported from Configure.
	CameraProps device.CameraProperties

	Storage     device.Storage
	StorageName string

	// MaxFrameCount stops capture after that many frames. Zero is unbounded.
	MaxFrameCount uint64

	Buffer ring.Config

	// AutoDrain makes the stream its own consumer: a drain goroutine forwards
	// frames to storage and MapRead returns ErrConsumerOwned.
	AutoDrain    bool
	PollInterval time.Duration

	Logger  log.Logger
	Workers Workers
	Clock   clock.Clock

	// OnFault, if set, is called once with the first device fault.
	OnFault func(err error)
}

// Stats is a snapshot of a stream's counters.
type Stats struct {
	Status domain.StreamStatus
	// Captured counts every frame the camera produced, including drops.
	Captured uint64
	Dropped  uint64
	// StoredBytes counts bytes accepted by storage.
	StoredBytes uint64
	Buffer      ring.Stats
	Fault       error
}

// Stream owns the ring buffer and goroutines of one running stream.
type Stream struct {
	cfg     Config
	log     log.Logger
	buf     *ring.Buffer
	payload int
	record  int

	ctx           context.Context
	cancel        context.CancelFunc
	captureCancel context.CancelFunc
	captureDone   chan struct{}
	drainDone     chan struct{}

	mu     sync.Mutex
	status domain.StreamStatus
	fault  error

	// consumer side
	cmu    sync.Mutex
	mapped frame.Range
	isMap  bool

	captured atomic.Uint64
	dropped  atomic.Uint64
	stored   atomic.Uint64
}

// New validates cfg and allocates the stream's buffer.
func New(cfg Config) (*Stream, error) {
	if cfg.Camera == nil {
		return nil, domain.Invalid(cfg.Index, "camera", "no camera bound")
	}
	if cfg.Storage == nil {
		return nil, domain.Invalid(cfg.Index, "storage", "no storage bound")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	payload := cfg.CameraProps.PayloadBytes()
	record := frame.RecordBytes(payload)
	if record > cfg.Buffer.Capacity {
		return nil, domain.Invalid(cfg.Index, "buffer.capacity_bytes",
			"%d bytes cannot hold one %d byte frame", cfg.Buffer.Capacity, record)
	}
	buf, err := ring.New(cfg.Buffer)
	if err != nil {
		return nil, domain.Invalid(cfg.Index, "buffer.capacity_bytes", "%v", err)
	}

	return &Stream{
		cfg:     cfg,
		log:     log.With(cfg.Logger, log.Stream(cfg.Index)),
		buf:     buf,
		payload: payload,
		record:  record,
	}, nil
}

// Index returns the stream's slot.
func (s *Stream) Index() int { return s.cfg.Index }

// Start starts storage, then the camera, then the capture goroutine. The
// stream's goroutines run until ctx is cancelled, Stop, or Abort.
func (s *Stream) Start(ctx context.Context) error {
	if err := s.cfg.Storage.Start(ctx); err != nil {
		return s.deviceErr(s.cfg.StorageName, err)
	}
	if err := s.cfg.Camera.Start(ctx); err != nil {
		startErr := s.deviceErr(s.cfg.CameraName, err)
		if serr := s.cfg.Storage.Stop(); serr != nil {
			return errors.Join(startErr, s.deviceErr(s.cfg.StorageName, serr))
		}
		return startErr
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	var captureCtx context.Context
	captureCtx, s.captureCancel = context.WithCancel(s.ctx)
	s.captureDone = make(chan struct{})
	s.setStatus(domain.StreamRunning)

	s.spawn(s.captureDone, func() { s.capture(captureCtx) })
	if s.cfg.AutoDrain {
		s.drainDone = make(chan struct{})
		s.spawn(s.drainDone, func() { s.drain(s.ctx) })
	}

	s.log.Info("stream started",
		log.String("camera", s.cfg.CameraName),
		log.String("storage", s.cfg.StorageName),
		log.Int("frame_bytes", s.record),
		log.Int("buffer_bytes", s.buf.Capacity()),
		log.Uint64("max_frame_count", s.cfg.MaxFrameCount),
		log.Int64("block_timeout_ms", s.cfg.Buffer.BlockTimeout.Milliseconds()),
		log.Bool("auto_drain", s.cfg.AutoDrain),
	)
	return nil
}

func (s *Stream) spawn(done chan struct{}, fn func()) {
	if s.cfg.Workers != nil {
		s.cfg.Workers.AddWorker()
	}
	go func() {
		defer close(done)
		if s.cfg.Workers != nil {
			defer s.cfg.Workers.WorkerDone()
		}
		fn()
	}()
}

// capture runs until the frame limit, cancellation, buffer close, or a
// device fault.
func (s *Stream) capture(ctx context.Context) {
	var (
		nextID  uint64
		scratch []byte
		shape   = s.cfg.CameraProps.FrameShape()
		typ     = s.cfg.CameraProps.PixelType
	)
	for s.cfg.MaxFrameCount == 0 || s.captured.Load() < s.cfg.MaxFrameCount {
		dst, err := s.buf.Reserve(ctx, s.record)
		switch {
		case err == nil:
			got, err := s.cfg.Camera.Step(ctx, dst[frame.HeaderSize:frame.HeaderSize+s.payload])
			if err != nil {
				s.stepFailed(ctx, err)
				return
			}
			if !got.Ready {
				continue
			}
			frame.PutHeader(dst, frame.Header{
				BytesOfFrame:    uint64(s.record),
				FrameID:         nextID,
				HardwareFrameID: got.HardwareFrameID,
				TimestampNs:     got.TimestampNs,
				Shape:           shape,
				Type:            typ,
			})
			clear(dst[frame.HeaderSize+s.payload:])
			if ctx.Err() != nil {
				// Abort may already have discarded the reservation.
				return
			}
			if err := s.buf.Commit(s.record); err != nil {
				s.setFault(s.cfg.CameraName, err)
				return
			}
			s.log.Debug("frame published", log.Uint64("frame_id", nextID))

		case errors.Is(err, ring.ErrNoSpace):
			// The frame still has to be read out of the camera; it takes an
			// id so the gap is visible downstream.
			if scratch == nil {
				scratch = make([]byte, s.payload)
			}
			got, err := s.cfg.Camera.Step(ctx, scratch)
			if err != nil {
				s.stepFailed(ctx, err)
				return
			}
			if !got.Ready {
				continue
			}
			s.buf.RecordDrop()
			if n := s.dropped.Add(1); n == 1 || n%100 == 0 {
				s.log.Warn("frame dropped",
					log.Err(domain.ErrOverflowDropped),
					log.Uint64("frame_id", nextID),
					log.Uint64("dropped", n),
				)
			}

		case errors.Is(err, ring.ErrClosed), ctx.Err() != nil:
			return

		default:
			s.setFault(s.cfg.CameraName, err)
			return
		}
		nextID++
		s.captured.Add(1)
	}

	s.mu.Lock()
	if s.status == domain.StreamRunning {
		s.status = domain.StreamFinished
	}
	s.mu.Unlock()
	s.log.Info("frame limit reached", log.Uint64("frames", s.captured.Load()))
}

func (s *Stream) stepFailed(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	s.setFault(s.cfg.CameraName, err)
}

// drain forwards frames to storage until the capture goroutine has exited
// and the buffer is empty, or ctx is cancelled.
func (s *Stream) drain(ctx context.Context) {
	for {
		n, err := s.flushOnce(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.setFault(s.cfg.StorageName, err)
			}
			return
		}
		if n > 0 {
			continue
		}
		select {
		case <-s.captureDone:
			if s.buf.Used() == 0 {
				return
			}
		default:
		}
		if err := s.cfg.Clock.Sleep(ctx, s.cfg.PollInterval); err != nil {
			return
		}
	}
}

// flushOnce maps everything readable, appends it to storage, and releases it.
func (s *Stream) flushOnce(ctx context.Context) (int, error) {
	rng, err := s.buf.MapRead()
	if err != nil {
		return 0, err
	}
	if rng.Empty() {
		return 0, s.buf.UnmapRead(0)
	}
	if err := s.append(ctx, rng); err != nil {
		return 0, err
	}
	return rng.Len(), s.buf.UnmapRead(rng.Len())
}

func (s *Stream) append(ctx context.Context, rng frame.Range) error {
	n, err := s.cfg.Storage.Append(ctx, rng)
	if err != nil {
		return err
	}
	if n != rng.Len() {
		return fmt.Errorf("storage accepted %d of %d bytes", n, rng.Len())
	}
	s.stored.Add(uint64(n))
	return nil
}

// MapRead returns every unread frame. It never blocks.
func (s *Stream) MapRead() (frame.Range, error) {
	if s.cfg.AutoDrain {
		return frame.Range{}, domain.ErrConsumerOwned
	}
	if err := s.Fault(); err != nil {
		return frame.Range{}, err
	}

	s.cmu.Lock()
	defer s.cmu.Unlock()
	rng, err := s.buf.MapRead()
	if err != nil {
		return frame.Range{}, err
	}
	s.mapped, s.isMap = rng, true
	return rng, nil
}

// UnmapRead forwards the first n mapped bytes to storage and releases them.
// n must end on a frame boundary.
func (s *Stream) UnmapRead(n int) error {
	if s.cfg.AutoDrain {
		return domain.ErrConsumerOwned
	}
	if err := s.Fault(); err != nil {
		return err
	}

	s.cmu.Lock()
	defer s.cmu.Unlock()

	if !s.isMap {
		if n == 0 {
			return nil
		}
		return s.buf.UnmapRead(n)
	}
	if n < 0 || n > s.mapped.Len() || !s.mapped.PrefixBytes(n) {
		return fmt.Errorf("%w: %w", domain.ErrPartialFrameRelease, ring.ErrPartialFrameRelease)
	}
	if n > 0 {
		if err := s.append(s.ctx, s.mapped.Slice(n)); err != nil {
			return s.setFault(s.cfg.StorageName, err)
		}
	}
	if err := s.buf.UnmapRead(n); err != nil {
		return err
	}
	s.mapped, s.isMap = frame.Range{}, false
	return nil
}

// Stop halts capture, flushes unread frames to storage, and stops both
// devices. A mapping still held by the caller is abandoned and its frames
// are flushed too.
func (s *Stream) Stop(timeout time.Duration) error {
	if s.cancel == nil {
		return nil
	}
	s.captureCancel()
	s.buf.Close()
	if err := s.wait(s.captureDone, timeout); err != nil {
		return err
	}

	var flushErr error
	if s.cfg.AutoDrain {
		if err := s.wait(s.drainDone, timeout); err != nil {
			return err
		}
	} else if s.Fault() == nil {
		s.cmu.Lock()
		if s.isMap {
			s.buf.UnmapRead(0)
			s.mapped, s.isMap = frame.Range{}, false
		}
		for {
			n, err := s.flushOnce(s.ctx)
			if err != nil {
				// An Abort racing the flush cancels s.ctx.
				if s.ctx.Err() == nil {
					flushErr = s.setFault(s.cfg.StorageName, err)
				}
				break
			}
			if n == 0 {
				break
			}
		}
		s.cmu.Unlock()
	}
	s.cancel()

	err := errors.Join(flushErr, s.stopDevices())
	s.log.Info("stream stopped",
		log.Uint64("captured", s.captured.Load()),
		log.Uint64("dropped", s.dropped.Load()),
		log.Uint64("stored_bytes", s.stored.Load()),
	)
	return err
}

// Abort cancels capture, discards unread frames, and stops both devices.
// If the goroutines do not exit within timeout it returns
// ErrShutdownTimeout and leaves the buffer allocated.
func (s *Stream) Abort(timeout time.Duration) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.buf.Close()
	if err := s.wait(s.captureDone, timeout); err != nil {
		return err
	}
	if s.drainDone != nil {
		if err := s.wait(s.drainDone, timeout); err != nil {
			return err
		}
	}

	s.cmu.Lock()
	s.buf.Discard()
	s.mapped, s.isMap = frame.Range{}, false
	s.cmu.Unlock()

	err := s.stopDevices()
	s.log.Info("stream aborted",
		log.Uint64("captured", s.captured.Load()),
		log.Uint64("dropped", s.dropped.Load()),
	)
	return err
}

// Live reports whether any of the stream's goroutines are still running,
// as after an Abort or Stop that returned ErrShutdownTimeout.
func (s *Stream) Live() bool {
	for _, done := range []chan struct{}{s.captureDone, s.drainDone} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		default:
			return true
		}
	}
	return false
}

func (s *Stream) wait(done chan struct{}, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		s.log.Error("stream goroutine did not exit", log.Duration("timeout", timeout))
		return fmt.Errorf("stream %d: %w", s.cfg.Index, domain.ErrShutdownTimeout)
	}
}

func (s *Stream) stopDevices() error {
	var errs []error
	if err := s.cfg.Camera.Stop(); err != nil {
		errs = append(errs, s.deviceErr(s.cfg.CameraName, err))
	}
	if err := s.cfg.Storage.Stop(); err != nil {
		errs = append(errs, s.deviceErr(s.cfg.StorageName, err))
	}
	s.mu.Lock()
	if s.status != domain.StreamFaulted {
		s.status = domain.StreamIdle
	}
	s.mu.Unlock()
	return errors.Join(errs...)
}

func (s *Stream) deviceErr(name string, err error) error {
	return &domain.DeviceFaultError{Stream: s.cfg.Index, Device: name, Err: err}
}

// setFault records the first device failure and returns it.
func (s *Stream) setFault(name string, err error) error {
	s.mu.Lock()
	first := s.fault == nil
	if first {
		s.fault = s.deviceErr(name, err)
		s.status = domain.StreamFaulted
	}
	fault := s.fault
	s.mu.Unlock()

	if first {
		s.log.Error("device fault", log.String("device", name), log.Err(err))
		if s.cfg.OnFault != nil {
			s.cfg.OnFault(fault)
		}
	}
	return fault
}

// Fault returns the recorded device failure, if any.
func (s *Stream) Fault() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fault
}

func (s *Stream) setStatus(st domain.StreamStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// Stats returns a snapshot of the stream's counters.
func (s *Stream) Stats() Stats {
	s.mu.Lock()
	status, fault := s.status, s.fault
	s.mu.Unlock()
	return Stats{
		Status:      status,
		Captured:    s.captured.Load(),
		Dropped:     s.dropped.Load(),
		StoredBytes: s.stored.Load(),
		Buffer:      s.buf.Stats(),
		Fault:       fault,
	}
}
