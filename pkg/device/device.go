package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/bft-labs/acquire/pkg/frame"
)

// Kind classifies a device by the capability it provides.
type Kind int

const (
	// KindNone marks an unused stream slot.
	KindNone Kind = iota
	// KindCamera is a frame source.
	KindCamera
	// KindStorage is a frame sink.
	KindStorage
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCamera:
		return "camera"
	case KindStorage:
		return "storage"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts "camera", "storage" or "none" into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "camera":
		return KindCamera, nil
	case "storage":
		return KindStorage, nil
	case "none", "":
		return KindNone, nil
	default:
		return KindNone, fmt.Errorf("device: unknown kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Identifier names a registered device. Index is the registration position
// within the manager and never changes once assigned.
type Identifier struct {
	Kind  Kind   `toml:"kind"`
	Index int    `toml:"index"`
	Name  string `toml:"name"`
}

// IsZero reports whether the identifier selects no device.
func (id Identifier) IsZero() bool {
	return id.Kind == KindNone
}

func (id Identifier) String() string {
	if id.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s[%d] %q", id.Kind, id.Index, id.Name)
}

// Device is the lifecycle every driver implements.
//
// Start is called once per acquisition after Configure; Stop ends the
// acquisition and may be followed by another Configure/Start cycle. Close
// releases the device for good.
type Device interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Close() error
}

// Capture describes the frame a camera wrote during one Step.
type Capture struct {
	// Ready is false when the camera had no frame this step.
	Ready bool

	// HardwareFrameID is the camera's own frame counter.
	HardwareFrameID uint64

	// TimestampNs is the acquisition time in nanoseconds.
	TimestampNs uint64
}

// Camera produces frames.
type Camera interface {
	Device

	// Configure applies p and returns the settings actually in effect, which
	// may be rounded by the hardware. A rejected setting wraps ErrValidation.
	Configure(p CameraProperties) (CameraProperties, error)

	// Step waits for at most one frame and writes its payload into dst,
	// which is exactly the payload size implied by the configured shape and
	// pixel type.
	Step(ctx context.Context, dst []byte) (Capture, error)
}

// StreamDescription tells a storage device the frame layout it will receive.
type StreamDescription struct {
	Shape frame.Shape
	Type  frame.SampleType
}

// Storage consumes frames.
type Storage interface {
	Device

	// Configure applies p for frames shaped like desc and returns the
	// settings in effect.
	Configure(p StorageProperties, desc StreamDescription) (StorageProperties, error)

	// Append persists the records in rng and returns the number of bytes
	// accepted, which is always a record boundary.
	Append(ctx context.Context, rng frame.Range) (int, error)
}
