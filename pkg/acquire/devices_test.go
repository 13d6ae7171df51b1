package acquire_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
)

// stubCamera emits zeroed frames and fails Step once failAt frames have
// been produced.
type stubCamera struct {
	name   string
	failAt int64
	steps  atomic.Int64
	mu     sync.Mutex
	props  device.CameraProperties
	closed bool
}

func (c *stubCamera) Name() string                    { return c.name }
func (c *stubCamera) Start(ctx context.Context) error { return nil }
func (c *stubCamera) Stop() error                     { return nil }

func (c *stubCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubCamera) Configure(p device.CameraProperties) (device.CameraProperties, error) {
	if err := p.Validate(); err != nil {
		return device.CameraProperties{}, err
	}
	c.mu.Lock()
	c.props = p
	c.mu.Unlock()
	return p, nil
}

func (c *stubCamera) Step(ctx context.Context, dst []byte) (device.Capture, error) {
	n := c.steps.Add(1)
	if c.failAt > 0 && n > c.failAt {
		return device.Capture{}, errors.New("sensor overheated")
	}
	clear(dst)
	return device.Capture{Ready: true, HardwareFrameID: uint64(n - 1)}, nil
}

// stubStorage accepts every frame and records the ids.
type stubStorage struct {
	name     string
	startErr error

	mu     sync.Mutex
	ids    []uint64
	closed bool
}

func (s *stubStorage) Name() string { return s.name }
func (s *stubStorage) Start(ctx context.Context) error {
	return s.startErr
}
func (s *stubStorage) Stop() error { return nil }

func (s *stubStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubStorage) Configure(p device.StorageProperties, desc device.StreamDescription) (device.StorageProperties, error) {
	return p, p.Validate()
}

func (s *stubStorage) Append(ctx context.Context, rng frame.Range) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := rng.Iter()
	for it.Next() {
		s.ids = append(s.ids, it.Frame().FrameID)
	}
	return it.Offset(), it.Err()
}

func (s *stubStorage) frameIDs() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.ids...)
}

func registerCamera(t *testing.T, rt *acquire.Runtime, cam *stubCamera) device.Identifier {
	t.Helper()
	id, err := rt.DeviceManager().Register(device.KindCamera, cam.name, func() (device.Device, error) {
		return cam, nil
	})
	require.NoError(t, err)
	return id
}

func registerStorage(t *testing.T, rt *acquire.Runtime, st *stubStorage) device.Identifier {
	t.Helper()
	id, err := rt.DeviceManager().Register(device.KindStorage, st.name, func() (device.Device, error) {
		return st, nil
	})
	require.NoError(t, err)
	return id
}

func newRuntime(t *testing.T, opts ...acquire.Option) *acquire.Runtime {
	t.Helper()
	rt, err := acquire.Init(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Shutdown() })
	return rt
}

var smallCamera = device.CameraProperties{
	Binning:   1,
	PixelType: frame.SampleU8,
	Shape:     device.Point2{X: 64, Y: 48},
}

// stream selects devices by pattern and returns a small u8 stream.
func stream(t *testing.T, rt *acquire.Runtime, cameraPattern, storagePattern string) acquire.VideoStream {
	t.Helper()
	dm := rt.DeviceManager()
	cam, err := dm.Select(device.KindCamera, cameraPattern)
	require.NoError(t, err)
	st, err := dm.Select(device.KindStorage, storagePattern)
	require.NoError(t, err)
	return acquire.VideoStream{
		Camera:  acquire.CameraStream{Identifier: cam, Settings: smallCamera},
		Storage: acquire.StorageStream{Identifier: st},
	}
}
