// Package camera implements simulated frame sources.
package camera

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
)

// Pattern selects what a simulated camera draws.
type Pattern int

const (
	// PatternEmpty emits zeroed frames.
	PatternEmpty Pattern = iota
	// PatternRandom emits uniform noise.
	PatternRandom
	// PatternRadialSin emits concentric rings that drift outward each frame.
	PatternRadialSin
)

// Sensor limits of the simulated cameras.
const (
	SensorWidth  = 8192
	SensorHeight = 8192

	// ExposureStepUs is the exposure granularity; requested exposures are
	// rounded to the nearest step.
	ExposureStepUs = 10
)

// ErrNotStarted is returned by Step before Start.
var ErrNotStarted = errors.New("camera: not started")

// Simulated is a software camera. The frame period equals the exposure time.
type Simulated struct {
	name    string
	pattern Pattern
	clk     clock.Clock

	mu      sync.Mutex
	props   device.CameraProperties
	started bool
	closed  bool
	next    time.Time
	hwID    uint64
	rnd     *rand.Rand
}

// NewSimulated creates a camera drawing pattern. A nil clk uses the system
// clock.
func NewSimulated(name string, pattern Pattern, clk clock.Clock) *Simulated {
	if clk == nil {
		clk = clock.System{}
	}
	return &Simulated{
		name:    name,
		pattern: pattern,
		clk:     clk,
		props: device.CameraProperties{
			Binning:   1,
			PixelType: frame.SampleU8,
			Shape:     device.Point2{X: 64, Y: 48},
		},
		rnd: rand.New(rand.NewSource(1)),
	}
}

// Name returns the registered device name.
func (c *Simulated) Name() string { return c.name }

// Configure validates p against the sensor and returns the settings in
// effect. The exposure is rounded to ExposureStepUs.
func (c *Simulated) Configure(p device.CameraProperties) (device.CameraProperties, error) {
	if err := p.Validate(); err != nil {
		return device.CameraProperties{}, err
	}
	if p.Binning&(p.Binning-1) != 0 || p.Binning > 8 {
		return device.CameraProperties{}, domain.Invalid(-1, "camera.binning", "must be 1, 2, 4 or 8, got %d", p.Binning)
	}
	maxX, maxY := uint32(SensorWidth/int(p.Binning)), uint32(SensorHeight/int(p.Binning))
	if p.Offset.X+p.Shape.X > maxX || p.Offset.Y+p.Shape.Y > maxY {
		return device.CameraProperties{}, domain.Invalid(-1, "camera.shape",
			"%dx%d at offset %d,%d exceeds sensor %dx%d", p.Shape.X, p.Shape.Y, p.Offset.X, p.Offset.Y, maxX, maxY)
	}
	p.ExposureTimeUs = math.Round(p.ExposureTimeUs/ExposureStepUs) * ExposureStepUs

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return device.CameraProperties{}, fmt.Errorf("camera %q: closed", c.name)
	}
	c.props = p
	return p, nil
}

// Start begins acquisition.
func (c *Simulated) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("camera %q: closed", c.name)
	}
	c.started = true
	c.next = c.clk.Now()
	return nil
}

// Stop ends acquisition. It is safe to call when not started.
func (c *Simulated) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	return nil
}

// Close releases the camera.
func (c *Simulated) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = false
	c.closed = true
	return nil
}

// Step waits for the end of the current exposure and draws one frame into
// dst.
func (c *Simulated) Step(ctx context.Context, dst []byte) (device.Capture, error) {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return device.Capture{}, ErrNotStarted
	}
	props := c.props
	due := c.next
	c.mu.Unlock()

	if want := props.PayloadBytes(); len(dst) != want {
		return device.Capture{}, fmt.Errorf("camera %q: destination holds %d bytes, frame needs %d", c.name, len(dst), want)
	}
	if err := c.clk.Sleep(ctx, due.Sub(c.clk.Now())); err != nil {
		return device.Capture{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return device.Capture{}, ErrNotStarted
	}
	now := c.clk.Now()
	c.next = due.Add(time.Duration(props.ExposureTimeUs * float64(time.Microsecond)))
	if c.next.Before(now) {
		c.next = now
	}
	hw := c.hwID
	c.hwID++

	switch c.pattern {
	case PatternEmpty:
		clear(dst)
	case PatternRandom:
		c.rnd.Read(dst)
	case PatternRadialSin:
		drawRadialSin(dst, props, float64(hw))
	}

	return device.Capture{
		Ready:           true,
		HardwareFrameID: hw,
		TimestampNs:     uint64(now.UnixNano()),
	}, nil
}

// drawRadialSin fills dst with 0.5+0.5*sin(r/8 - phase) around the image
// center, scaled to the full range of the sample type.
func drawRadialSin(dst []byte, p device.CameraProperties, phase float64) {
	w, h := int(p.Shape.X), int(p.Shape.Y)
	cx, cy := float64(w)/2, float64(h)/2
	bps := p.PixelType.BytesPerSample()
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		row := dst[y*w*bps:]
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			v := 0.5 + 0.5*math.Sin(math.Sqrt(dx*dx+dy*dy)/8-phase)
			putSample(row[x*bps:], p.PixelType, v)
		}
	}
}

// putSample encodes v in [0,1] as one sample of type t.
func putSample(dst []byte, t frame.SampleType, v float64) {
	switch t {
	case frame.SampleU8:
		dst[0] = uint8(v * math.MaxUint8)
	case frame.SampleI8:
		dst[0] = byte(int8(v*math.MaxUint8 - 128))
	case frame.SampleU16:
		binary.LittleEndian.PutUint16(dst, uint16(v*math.MaxUint16))
	case frame.SampleI16:
		binary.LittleEndian.PutUint16(dst, uint16(int16(v*math.MaxUint16-32768)))
	case frame.SampleU10:
		binary.LittleEndian.PutUint16(dst, uint16(v*(1<<10-1)))
	case frame.SampleU12:
		binary.LittleEndian.PutUint16(dst, uint16(v*(1<<12-1)))
	case frame.SampleU14:
		binary.LittleEndian.PutUint16(dst, uint16(v*(1<<14-1)))
	case frame.SampleF32:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(v)))
	}
}
