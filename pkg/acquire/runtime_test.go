package acquire_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/acquire/internal/adapters/camera"
	"github.com/bft-labs/acquire/internal/harness"
	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/log"
	"github.com/bft-labs/acquire/pkg/ring"
)

type reportLine struct {
	isError bool
	file    string
	msg     string
}

type reports struct {
	mu    sync.Mutex
	lines []reportLine
}

func (r *reports) report(isError bool, file string, line int, function, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, reportLine{isError: isError, file: file, msg: msg})
}

func (r *reports) errors() []reportLine {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []reportLine
	for _, l := range r.lines {
		if l.isError {
			out = append(out, l)
		}
	}
	return out
}

func TestRuntime_KinetixScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a large frame buffer")
	}
	rep := &reports{}
	rt := newRuntime(t, acquire.WithReporter(rep.report))
	dm := rt.DeviceManager()

	const name = "Kinetix (simulated)"
	_, err := dm.Register(device.KindCamera, name, func() (device.Device, error) {
		return camera.NewSimulated(name, camera.PatternEmpty, nil), nil
	})
	require.NoError(t, err)

	props, err := rt.GetConfiguration()
	require.NoError(t, err)

	v := &props.Video[0]
	v.Camera.Identifier, err = dm.Select(device.KindCamera, ".*Kinetix.*")
	require.NoError(t, err)
	v.Storage.Identifier, err = dm.Select(device.KindStorage, "trash")
	require.NoError(t, err)
	v.Camera.Settings = device.CameraProperties{
		ExposureTimeUs: 1e4,
		Binning:        1,
		PixelType:      frame.SampleU16,
		Shape:          device.Point2{X: 3200, Y: 3200},
	}
	v.MaxFrameCount = 100

	got, err := rt.Configure(props)
	require.NoError(t, err)
	assert.Equal(t, acquire.StateConfigured, rt.State())
	assert.Equal(t, 1e4, got.Video[0].Camera.Settings.ExposureTimeUs)
	assert.Equal(t, acquire.DefaultBufferFrames*frame.RecordBytes(3200*3200*2), got.Video[0].Buffer.CapacityBytes)

	require.NoError(t, rt.Start(context.Background()))
	res, err := harness.Run(context.Background(), rt, harness.Config{
		Stream:    0,
		Frames:    100,
		TimeLimit: 20 * time.Second,
		Shape:     frame.Shape{Channels: 1, Width: 3200, Height: 3200, Planes: 1},
		Type:      frame.SampleU16,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.Frames)
	assert.Equal(t, uint64(0), res.FirstID)
	assert.Equal(t, uint64(99), res.LastID)
	assert.Zero(t, res.Gaps)

	stats, err := rt.Stats(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), stats.Captured)
	assert.Zero(t, stats.Dropped)

	require.NoError(t, rt.Abort())
	assert.Equal(t, acquire.StateConfigured, rt.State())
	require.NoError(t, rt.Shutdown())
	assert.Equal(t, acquire.StateUninitialized, rt.State())
	assert.Empty(t, rep.errors())
}

func TestRuntime_SelectNoSuchDevice(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.DeviceManager().Select(device.KindCamera, "no-such-device")
	assert.ErrorIs(t, err, acquire.ErrNoMatchingDevice)
}

func TestRuntime_BuiltinDevices(t *testing.T) {
	rt := newRuntime(t)
	var names []string
	for _, id := range rt.DeviceManager().List(device.KindNone) {
		names = append(names, id.Name)
	}
	assert.Equal(t, []string{
		camera.NameEmpty, camera.NameRandom, camera.NameRadialSin,
		"trash", "raw", "tiff",
	}, names)

	bare := newRuntime(t, acquire.WithoutBuiltinDevices())
	assert.Empty(t, bare.DeviceManager().List(device.KindNone))
}

func TestRuntime_ConfigureRoundTrip(t *testing.T) {
	rt := newRuntime(t)

	props, err := rt.GetConfiguration()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(acquire.Properties{}, props))

	props.Video[0] = stream(t, rt, "random", "trash")
	props.Video[0].Camera.Settings.ExposureTimeUs = 1234.5
	props.Video[0].MaxFrameCount = 7
	props.Video[0].Buffer = acquire.BufferProperties{CapacityBytes: 1 << 20, Overflow: ring.Drop}
	props.Video[0].Storage.Settings, err = device.StoragePropertiesInit(3, "", `{"run":1}`,
		device.PixelScale{X: 0.2, Y: 0.2}, device.Chunking{Width: 32, Height: 32, Planes: 1})
	require.NoError(t, err)

	got, err := rt.Configure(props)
	require.NoError(t, err)

	want := props
	want.Video[0].Camera.Settings.ExposureTimeUs = 1230
	assert.Empty(t, cmp.Diff(want, got))

	again, err := rt.GetConfiguration()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(got, again))

	// Re-applying the returned configuration is a fixed point.
	fixed, err := rt.Configure(again)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(again, fixed))
}

func TestRuntime_ConfigureRejected(t *testing.T) {
	rt := newRuntime(t)

	bad := acquire.Properties{}
	bad.Video[1] = stream(t, rt, "random", "trash")
	bad.Video[1].Camera.Settings.Shape.X = 0

	_, err := rt.Configure(bad)
	require.ErrorIs(t, err, acquire.ErrValidation)
	var ve *acquire.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Stream)
	assert.Equal(t, "camera.shape", ve.Field)
	assert.Equal(t, acquire.StateUninitialized, rt.State())

	good := acquire.Properties{}
	good.Video[0] = stream(t, rt, "random", "trash")
	committed, err := rt.Configure(good)
	require.NoError(t, err)

	tests := []struct {
		name  string
		mod   func(v *acquire.VideoStream)
		field string
	}{
		{"binning not a power of two", func(v *acquire.VideoStream) { v.Camera.Settings.Binning = 3 }, "camera.binning"},
		{"beyond sensor", func(v *acquire.VideoStream) { v.Camera.Settings.Shape.X = camera.SensorWidth + 1 }, "camera.shape"},
		{"buffer too small", func(v *acquire.VideoStream) { v.Buffer.CapacityBytes = 64 }, "buffer.capacity_bytes"},
		{"negative buffer", func(v *acquire.VideoStream) { v.Buffer.CapacityBytes = -1 }, "buffer.capacity_bytes"},
		{"negative timeout", func(v *acquire.VideoStream) { v.Buffer.BlockTimeout = -time.Second }, "buffer.block_timeout"},
		{"bad metadata", func(v *acquire.VideoStream) { v.Storage.Settings.ExternalMetadataJSON = "{" }, "storage.external_metadata_json"},
		{"raw without filename", func(v *acquire.VideoStream) {
			v.Storage.Identifier, _ = rt.DeviceManager().Select(device.KindStorage, "raw")
		}, "storage.filename"},
		{"storage is a camera", func(v *acquire.VideoStream) { v.Storage.Identifier = v.Camera.Identifier }, "storage.identifier"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props := committed
			tt.mod(&props.Video[0])
			_, err := rt.Configure(props)
			require.ErrorIs(t, err, acquire.ErrValidation)
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, 0, ve.Stream)
			assert.Equal(t, tt.field, ve.Field)

			assert.Equal(t, acquire.StateConfigured, rt.State())
			current, err := rt.GetConfiguration()
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(committed, current))
		})
	}
}

func TestRuntime_ConfigureStaleIdentifier(t *testing.T) {
	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	props.Video[0].Camera.Identifier.Name = "gone"

	_, err := rt.Configure(props)
	assert.ErrorIs(t, err, acquire.ErrNoMatchingDevice)
	assert.Equal(t, acquire.StateUninitialized, rt.State())
}

func TestRuntime_ConfigureWhileRunning(t *testing.T) {
	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	committed, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	changed := committed
	changed.Video[0].MaxFrameCount = 3
	_, err = rt.Configure(changed)
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)
	_, err = rt.GetConfiguration()
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)
	assert.ErrorIs(t, rt.Start(context.Background()), acquire.ErrInvalidStateForOperation)
	assert.Equal(t, acquire.StateRunning, rt.State())

	require.NoError(t, rt.Abort())
	current, err := rt.GetConfiguration()
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(committed, current))

	_, err = rt.Configure(changed)
	assert.NoError(t, err)
}

func TestRuntime_MapReadRequiresRunning(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.MapRead(0)
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)
	assert.ErrorIs(t, rt.UnmapRead(0, 0), acquire.ErrInvalidStateForOperation)
	assert.ErrorIs(t, rt.Stop(), acquire.ErrInvalidStateForOperation)
	assert.NoError(t, rt.Abort())
}

func TestRuntime_MapReadDisabledStream(t *testing.T) {
	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	defer rt.Abort()

	_, err = rt.MapRead(1)
	assert.ErrorIs(t, err, acquire.ErrValidation)
	_, err = rt.MapRead(acquire.MaxStreams)
	assert.ErrorIs(t, err, acquire.ErrValidation)
}

func TestRuntime_StartWithoutStreams(t *testing.T) {
	rt := newRuntime(t)
	_, err := rt.Configure(acquire.Properties{})
	require.NoError(t, err)
	assert.ErrorIs(t, rt.Start(context.Background()), acquire.ErrValidation)
	assert.Equal(t, acquire.StateConfigured, rt.State())
}

func TestRuntime_PartialReleaseRejected(t *testing.T) {
	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	props.Video[0].MaxFrameCount = 2
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))
	defer rt.Abort()

	var rng frame.Range
	require.Eventually(t, func() bool {
		if !rng.Empty() {
			return true
		}
		var err error
		if rng, err = rt.MapRead(0); err != nil {
			return false
		}
		if rng.Empty() {
			_ = rt.UnmapRead(0, 0)
		}
		return !rng.Empty()
	}, 5*time.Second, time.Millisecond)

	assert.ErrorIs(t, rt.UnmapRead(0, 8), acquire.ErrPartialFrameRelease)
	// The mapping is still held and a whole-frame release succeeds.
	it := rng.Iter()
	require.True(t, it.Next())
	assert.NoError(t, rt.UnmapRead(0, it.Offset()))
}

func TestRuntime_BoundedAbort(t *testing.T) {
	rt := newRuntime(t, acquire.WithShutdownTimeout(time.Second))
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	props.Video[1] = stream(t, rt, "radial", "trash")
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	// Nobody consumes, so both producers end up blocked on a full buffer.
	require.Eventually(t, func() bool {
		s0, _ := rt.Stats(0)
		s1, _ := rt.Stats(1)
		return s0.Buffer.PublishedFrames >= acquire.DefaultBufferFrames &&
			s1.Buffer.PublishedFrames >= acquire.DefaultBufferFrames
	}, 5*time.Second, time.Millisecond)

	start := time.Now()
	require.NoError(t, rt.Abort())
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, acquire.StateConfigured, rt.State())

	for i := 0; i < acquire.MaxStreams; i++ {
		stats, err := rt.Stats(i)
		require.NoError(t, err)
		assert.Equal(t, acquire.StreamIdle, stats.Status)
		assert.Zero(t, stats.Buffer.UsedBytes, "stream %d", i)
	}

	// The runtime can run again after an abort.
	first := rt.RunID()
	require.NoError(t, rt.Start(context.Background()))
	assert.NotEqual(t, first, rt.RunID())
	require.NoError(t, rt.Abort())
}

// stuckCamera blocks in Step until release is closed, whatever its context
// says, and records the most Step calls seen at once.
type stuckCamera struct {
	*stubCamera
	entered  chan struct{}
	release  chan struct{}
	once     sync.Once
	inflight atomic.Int32
	peak     atomic.Int32
}

func newStuckCamera(t *testing.T) *stuckCamera {
	c := &stuckCamera{
		stubCamera: &stubCamera{name: "stuck"},
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	t.Cleanup(c.unblock)
	return c
}

func (c *stuckCamera) unblock() {
	select {
	case <-c.release:
	default:
		close(c.release)
	}
}

func (c *stuckCamera) Step(ctx context.Context, dst []byte) (device.Capture, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	c.once.Do(func() { close(c.entered) })
	<-c.release
	return c.stubCamera.Step(ctx, dst)
}

// startStuck runs a stream on a camera that ignores cancellation and aborts
// it, leaving the capture goroutine behind.
func startStuck(t *testing.T) (*acquire.Runtime, *stuckCamera) {
	t.Helper()
	rt := newRuntime(t, acquire.WithShutdownTimeout(50*time.Millisecond))
	cam := newStuckCamera(t)
	camID, err := rt.DeviceManager().Register(device.KindCamera, cam.name, func() (device.Device, error) {
		return cam, nil
	})
	require.NoError(t, err)
	storID, err := rt.DeviceManager().Select(device.KindStorage, "trash")
	require.NoError(t, err)

	props := acquire.Properties{}
	props.Video[0] = acquire.VideoStream{
		Camera:  acquire.CameraStream{Identifier: camID, Settings: smallCamera},
		Storage: acquire.StorageStream{Identifier: storID},
	}
	_, err = rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	select {
	case <-cam.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("camera never stepped")
	}
	assert.ErrorIs(t, rt.Abort(), acquire.ErrShutdownTimeout)
	return rt, cam
}

func TestRuntime_AbortTimeoutBlocksRestart(t *testing.T) {
	rt, cam := startStuck(t)
	assert.Equal(t, acquire.StateConfigured, rt.State())

	props, err := rt.GetConfiguration()
	require.NoError(t, err)
	assert.ErrorIs(t, rt.Start(context.Background()), acquire.ErrInvalidStateForOperation)
	_, err = rt.Configure(props)
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)

	cam.unblock()
	require.Eventually(t, func() bool {
		return rt.Start(context.Background()) == nil
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, rt.Abort())
	assert.Equal(t, int32(1), cam.peak.Load())
}

func TestRuntime_ShutdownKeepsLiveDevicesOpen(t *testing.T) {
	rt, cam := startStuck(t)
	require.NoError(t, rt.Shutdown())
	assert.Equal(t, acquire.StateUninitialized, rt.State())
	assert.False(t, cam.isClosed())
	cam.unblock()
}

func TestRuntime_DropPolicyAccountsGaps(t *testing.T) {
	rt := newRuntime(t)
	st := &stubStorage{name: "memory"}
	registerStorage(t, rt, st)

	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "memory")
	props.Video[0].MaxFrameCount = 50
	props.Video[0].Buffer = acquire.BufferProperties{
		CapacityBytes: 2 * frame.RecordBytes(smallCamera.PayloadBytes()),
		Overflow:      ring.Drop,
	}
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	require.Eventually(t, func() bool {
		s, _ := rt.Stats(0)
		return s.Captured == 50
	}, 5*time.Second, time.Millisecond)

	res, err := harness.Run(context.Background(), rt, harness.Config{
		TimeLimit: 50 * time.Millisecond,
		Throttle:  time.Millisecond,
	})
	require.NoError(t, err)
	stats, err := rt.Stats(0)
	require.NoError(t, err)
	require.NoError(t, rt.Stop())

	assert.Equal(t, uint64(2), res.Frames)
	assert.Equal(t, uint64(48), stats.Dropped)
	assert.Equal(t, stats.Dropped, res.FirstID+res.Gaps+(49-res.LastID))
	assert.Len(t, st.frameIDs(), 2)
}

func TestRuntime_StopFlushesToStorage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.raw")

	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "radial", "raw")
	props.Video[0].MaxFrameCount = 5
	props.Video[0].Buffer.CapacityBytes = 8 * frame.RecordBytes(smallCamera.PayloadBytes())
	var err error
	props.Video[0].Storage.Settings, err = device.StoragePropertiesInit(100, path, "", device.PixelScale{}, device.Chunking{})
	require.NoError(t, err)
	_, err = rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	require.Eventually(t, func() bool {
		s, _ := rt.Stats(0)
		return s.Status == acquire.StreamFinished
	}, 5*time.Second, time.Millisecond)
	require.NoError(t, rt.Stop())
	assert.Equal(t, acquire.StateConfigured, rt.State())

	r, err := frame.OpenFile(path)
	require.NoError(t, err)
	defer r.Close()
	var ids []uint64
	for {
		f, err := r.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		ids = append(ids, f.FrameID)
	}
	assert.Equal(t, []uint64{100, 101, 102, 103, 104}, ids)
}

func TestRuntime_AutoDrain(t *testing.T) {
	rt := newRuntime(t)
	st := &stubStorage{name: "memory"}
	registerStorage(t, rt, st)

	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "empty", "memory")
	props.Video[0].MaxFrameCount = 20
	props.Video[0].Buffer.AutoDrain = true
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	_, err = rt.MapRead(0)
	assert.ErrorIs(t, err, acquire.ErrConsumerOwned)

	require.Eventually(t, func() bool { return len(st.frameIDs()) == 20 }, 5*time.Second, time.Millisecond)
	require.NoError(t, rt.Stop())
	assert.Equal(t, seq(0, 20), st.frameIDs())
}

func TestRuntime_StartAllOrNothing(t *testing.T) {
	rt := newRuntime(t)
	registerStorage(t, rt, &stubStorage{name: "broken", startErr: errors.New("disk missing")})

	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	props.Video[1] = stream(t, rt, "empty", "broken")
	_, err := rt.Configure(props)
	require.NoError(t, err)

	err = rt.Start(context.Background())
	require.ErrorIs(t, err, acquire.ErrDeviceFault)
	var fe *acquire.DeviceFaultError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Stream)
	assert.Equal(t, "broken", fe.Device)

	assert.Equal(t, acquire.StateConfigured, rt.State())
	assert.Empty(t, rt.RunID())
	_, err = rt.MapRead(0)
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)
}

func TestRuntime_StreamFault(t *testing.T) {
	events := &eventRecorder{}
	rt := newRuntime(t, acquire.WithEventHandler(events))
	registerCamera(t, rt, &stubCamera{name: "flaky", failAt: 3})

	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "flaky", "trash")
	props.Video[1] = stream(t, rt, "random", "trash")
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	require.Eventually(t, func() bool {
		s, _ := rt.Stats(0)
		return s.Status == acquire.StreamFaulted
	}, 5*time.Second, time.Millisecond)

	_, err = rt.MapRead(0)
	assert.ErrorIs(t, err, acquire.ErrDeviceFault)

	// The other stream is unaffected.
	_, err = rt.MapRead(1)
	assert.NoError(t, err)
	assert.NoError(t, rt.UnmapRead(1, 0))

	require.NoError(t, rt.Abort())

	faults := events.faults()
	require.Len(t, faults, 1)
	assert.Equal(t, 0, faults[0].Stream)
	assert.Equal(t, rt.RunID(), faults[0].RunID)
	assert.ErrorIs(t, faults[0].Err, acquire.ErrDeviceFault)
}

func TestRuntime_ReconfigureRebindsChangedDevices(t *testing.T) {
	rt := newRuntime(t)
	first := &stubCamera{name: "first"}
	second := &stubCamera{name: "second"}
	registerCamera(t, rt, first)
	registerCamera(t, rt, second)

	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "^first$", "trash")
	_, err := rt.Configure(props)
	require.NoError(t, err)

	// Same devices, new settings: the camera stays open.
	props.Video[0].MaxFrameCount = 9
	_, err = rt.Configure(props)
	require.NoError(t, err)
	assert.False(t, first.isClosed())

	props.Video[0] = stream(t, rt, "^second$", "trash")
	_, err = rt.Configure(props)
	require.NoError(t, err)
	assert.True(t, first.isClosed())
	assert.False(t, second.isClosed())

	require.NoError(t, rt.Shutdown())
	assert.True(t, second.isClosed())
}

func TestRuntime_Shutdown(t *testing.T) {
	rt := newRuntime(t)
	props := acquire.Properties{}
	props.Video[0] = stream(t, rt, "random", "trash")
	_, err := rt.Configure(props)
	require.NoError(t, err)
	require.NoError(t, rt.Start(context.Background()))

	require.NoError(t, rt.Shutdown())
	assert.Equal(t, acquire.StateUninitialized, rt.State())
	require.NoError(t, rt.Shutdown())

	_, err = rt.Configure(props)
	assert.ErrorIs(t, err, acquire.ErrInvalidStateForOperation)
	assert.ErrorIs(t, rt.Start(context.Background()), acquire.ErrInvalidStateForOperation)
}

func TestRuntime_ReporterReceivesLogs(t *testing.T) {
	rep := &reports{}
	rt := newRuntime(t, acquire.WithReporter(rep.report))
	_, err := rt.Configure(acquire.Properties{})
	require.NoError(t, err)

	rep.mu.Lock()
	defer rep.mu.Unlock()
	require.NotEmpty(t, rep.lines)
	assert.Contains(t, rep.lines[0].msg, "runtime initialized")
	assert.Equal(t, "runtime.go", rep.lines[0].file)
}

func TestRuntime_LoggerTakesPrecedence(t *testing.T) {
	rep := &reports{}
	rt := newRuntime(t, acquire.WithReporter(rep.report), acquire.WithLogger(log.NewNoopLogger()))
	_, err := rt.Configure(acquire.Properties{})
	require.NoError(t, err)
	rep.mu.Lock()
	defer rep.mu.Unlock()
	assert.Empty(t, rep.lines)
}

func seq(from, to uint64) []uint64 {
	var out []uint64
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
