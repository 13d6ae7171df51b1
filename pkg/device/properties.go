package device

import (
	"encoding/json"
	"fmt"

	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/frame"
)

// Point2 is an unsigned 2D extent or offset in pixels.
type Point2 struct {
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
}

// PixelScale is the physical pixel size in micrometers.
type PixelScale struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
}

// Chunking is the tile layout hint for chunked storage formats. Zero values
// mean one chunk per frame.
type Chunking struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	Planes uint32 `toml:"planes"`
}

// CameraProperties are the acquisition settings of a camera.
type CameraProperties struct {
	ExposureTimeUs float64          `toml:"exposure_time_us"`
	Binning        uint8            `toml:"binning"`
	PixelType      frame.SampleType `toml:"pixel_type"`
	Offset         Point2           `toml:"offset"`
	Shape          Point2           `toml:"shape"`
}

// FrameShape returns the record shape a camera with these settings emits.
func (p CameraProperties) FrameShape() frame.Shape {
	return frame.Shape{Channels: 1, Width: p.Shape.X, Height: p.Shape.Y, Planes: 1}
}

// PayloadBytes returns the pixel payload size of one frame.
func (p CameraProperties) PayloadBytes() int {
	return frame.PayloadBytes(p.FrameShape(), p.PixelType)
}

// Validate checks the settings that do not depend on the hardware.
func (p CameraProperties) Validate() error {
	if p.ExposureTimeUs < 0 {
		return domain.Invalid(-1, "camera.exposure_time_us", "must not be negative, got %g", p.ExposureTimeUs)
	}
	if p.Binning == 0 {
		return domain.Invalid(-1, "camera.binning", "must be at least 1")
	}
	if !p.PixelType.Valid() {
		return domain.Invalid(-1, "camera.pixel_type", "unknown sample type %d", int(p.PixelType))
	}
	if p.Shape.X == 0 || p.Shape.Y == 0 {
		return domain.Invalid(-1, "camera.shape", "must be non-zero, got %dx%d", p.Shape.X, p.Shape.Y)
	}
	return nil
}

// StorageProperties are the settings of a storage device.
type StorageProperties struct {
	Filename             string     `toml:"filename"`
	ExternalMetadataJSON string     `toml:"external_metadata_json"`
	FirstFrameID         uint64     `toml:"first_frame_id"`
	PixelScaleUm         PixelScale `toml:"pixel_scale_um"`
	Chunking             Chunking   `toml:"chunking"`
}

// StoragePropertiesInit builds storage settings. metadata must be empty or
// valid JSON.
func StoragePropertiesInit(firstFrameID uint64, filename, metadata string, pixelScale PixelScale, chunking Chunking) (StorageProperties, error) {
	if metadata != "" && !json.Valid([]byte(metadata)) {
		return StorageProperties{}, domain.Invalid(-1, "storage.external_metadata_json", "not valid JSON")
	}
	if pixelScale.X < 0 || pixelScale.Y < 0 {
		return StorageProperties{}, domain.Invalid(-1, "storage.pixel_scale_um", "must not be negative")
	}
	return StorageProperties{
		Filename:             filename,
		ExternalMetadataJSON: metadata,
		FirstFrameID:         firstFrameID,
		PixelScaleUm:         pixelScale,
		Chunking:             chunking,
	}, nil
}

// Validate checks the settings that do not depend on the backend.
func (p StorageProperties) Validate() error {
	if p.ExternalMetadataJSON != "" && !json.Valid([]byte(p.ExternalMetadataJSON)) {
		return domain.Invalid(-1, "storage.external_metadata_json", "not valid JSON")
	}
	if p.PixelScaleUm.X < 0 || p.PixelScaleUm.Y < 0 {
		return domain.Invalid(-1, "storage.pixel_scale_um", "must not be negative")
	}
	return nil
}

func (p StorageProperties) String() string {
	return fmt.Sprintf("file=%q first_frame_id=%d", p.Filename, p.FirstFrameID)
}
