package acquire

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/ring"
)

// MaxStreams is the number of video stream slots in a configuration.
const MaxStreams = 2

// DefaultBufferFrames sizes a buffer whose CapacityBytes is zero: it holds
// that many frames of the configured shape.
const DefaultBufferFrames = 4

// Properties is the full runtime configuration. A stream slot whose camera
// identifier is zero is unused.
type Properties struct {
	Video [MaxStreams]VideoStream
}

// VideoStream configures one camera to storage stream.
type VideoStream struct {
	Camera  CameraStream
	Storage StorageStream

	// MaxFrameCount stops capture after that many frames. Zero is unbounded.
	MaxFrameCount uint64

	Buffer BufferProperties
}

// CameraStream binds a camera and its settings.
type CameraStream struct {
	Identifier device.Identifier
	Settings   device.CameraProperties
}

// StorageStream binds a storage device and its settings.
type StorageStream struct {
	Identifier device.Identifier
	Settings   device.StorageProperties
}

// BufferProperties size the stream's ring buffer and pick its overflow
// behavior.
type BufferProperties struct {
	// CapacityBytes is the arena size. Zero means DefaultBufferFrames frames.
	CapacityBytes int
	Overflow      ring.OverflowPolicy
	// BlockTimeout bounds how long capture waits for space under the Block
	// policy. Zero waits until Abort or Stop.
	BlockTimeout time.Duration
	// AutoDrain makes the runtime forward frames to storage itself. MapRead
	// is then unavailable for the stream.
	AutoDrain bool
}

// Enabled reports whether the slot is in use.
func (v VideoStream) Enabled() bool {
	return !v.Camera.Identifier.IsZero()
}

// validate checks stream i against settings that need no device.
func (v VideoStream) validate(i int) error {
	if !v.Enabled() {
		return nil
	}
	if v.Camera.Identifier.Kind != device.KindCamera {
		return domain.Invalid(i, "camera.identifier", "%s is not a camera", v.Camera.Identifier)
	}
	if v.Storage.Identifier.Kind != device.KindStorage {
		return domain.Invalid(i, "storage.identifier", "%s is not a storage device", v.Storage.Identifier)
	}
	if err := v.Camera.Settings.Validate(); err != nil {
		return atStream(i, err)
	}
	if err := v.Storage.Settings.Validate(); err != nil {
		return atStream(i, err)
	}
	if v.Buffer.CapacityBytes < 0 {
		return domain.Invalid(i, "buffer.capacity_bytes", "must not be negative, got %d", v.Buffer.CapacityBytes)
	}
	if v.Buffer.Overflow != ring.Block && v.Buffer.Overflow != ring.Drop {
		return domain.Invalid(i, "buffer.overflow", "unknown policy %s", v.Buffer.Overflow)
	}
	if v.Buffer.BlockTimeout < 0 {
		return domain.Invalid(i, "buffer.block_timeout", "must not be negative, got %s", v.Buffer.BlockTimeout)
	}
	return nil
}

// sizeBuffer fills in the default capacity and checks that one frame of the
// adjusted camera settings fits.
func (v *VideoStream) sizeBuffer(i int) error {
	record := frame.RecordBytes(v.Camera.Settings.PayloadBytes())
	if v.Buffer.CapacityBytes == 0 {
		v.Buffer.CapacityBytes = DefaultBufferFrames * record
		return nil
	}
	if v.Buffer.CapacityBytes < record {
		return domain.Invalid(i, "buffer.capacity_bytes",
			"%d bytes cannot hold one %d byte frame", v.Buffer.CapacityBytes, record)
	}
	return nil
}

// atStream stamps a device-level validation error with the stream index.
func atStream(i int, err error) error {
	if ve, ok := err.(*domain.ValidationError); ok {
		c := *ve
		c.Stream = i
		return &c
	}
	return err
}

// PropertiesFile is the TOML form of Properties. Devices are named by
// selector patterns, which Resolve matches against a device manager.
type PropertiesFile struct {
	Streams []StreamFile `toml:"stream"`
}

// StreamFile is one [[stream]] table of a properties file.
type StreamFile struct {
	Camera          string                   `toml:"camera"`
	CameraSettings  device.CameraProperties  `toml:"camera_settings"`
	Storage         string                   `toml:"storage"`
	StorageSettings device.StorageProperties `toml:"storage_settings"`
	MaxFrameCount   uint64                   `toml:"max_frame_count"`
	Buffer          BufferFile               `toml:"buffer"`
}

// BufferFile uses strings for the policy and timeout to keep TOML readable.
type BufferFile struct {
	CapacityBytes int    `toml:"capacity_bytes"`
	Overflow      string `toml:"overflow"`
	BlockTimeout  string `toml:"block_timeout"`
	AutoDrain     bool   `toml:"auto_drain"`
}

// LoadPropertiesFile reads and parses a TOML properties file.
func LoadPropertiesFile(path string) (PropertiesFile, error) {
	var pf PropertiesFile
	b, err := os.ReadFile(path)
	if err != nil {
		return pf, err
	}
	if err := toml.Unmarshal(b, &pf); err != nil {
		return pf, fmt.Errorf("parse %s: %w", path, err)
	}
	return pf, nil
}

// Resolve selects each stream's devices in dm and returns the equivalent
// Properties.
func (pf PropertiesFile) Resolve(dm *device.Manager) (Properties, error) {
	var props Properties
	if len(pf.Streams) > MaxStreams {
		return props, domain.Invalid(-1, "stream", "at most %d streams, got %d", MaxStreams, len(pf.Streams))
	}
	for i, s := range pf.Streams {
		cam, err := dm.Select(device.KindCamera, s.Camera)
		if err != nil {
			return props, fmt.Errorf("stream %d camera: %w", i, err)
		}
		st, err := dm.Select(device.KindStorage, s.Storage)
		if err != nil {
			return props, fmt.Errorf("stream %d storage: %w", i, err)
		}
		policy, err := ring.ParseOverflowPolicy(s.Buffer.Overflow)
		if err != nil {
			return props, domain.Invalid(i, "buffer.overflow", "%v", err)
		}
		var timeout time.Duration
		if s.Buffer.BlockTimeout != "" {
			if timeout, err = time.ParseDuration(s.Buffer.BlockTimeout); err != nil {
				return props, domain.Invalid(i, "buffer.block_timeout", "%v", err)
			}
		}

		props.Video[i] = VideoStream{
			Camera:        CameraStream{Identifier: cam, Settings: s.CameraSettings},
			Storage:       StorageStream{Identifier: st, Settings: s.StorageSettings},
			MaxFrameCount: s.MaxFrameCount,
			Buffer: BufferProperties{
				CapacityBytes: s.Buffer.CapacityBytes,
				Overflow:      policy,
				BlockTimeout:  timeout,
				AutoDrain:     s.Buffer.AutoDrain,
			},
		}
	}
	return props, nil
}
