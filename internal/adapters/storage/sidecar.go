package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/acquire/pkg/device"
)

// Sidecar describes a stored acquisition. It is written next to the data as
// <filename>.json when the stream starts and rewritten when it stops.
type Sidecar struct {
	SessionID    string            `json:"session_id"`
	Device       string            `json:"device"`
	Width        uint32            `json:"width"`
	Height       uint32            `json:"height"`
	Channels     uint32            `json:"channels"`
	Planes       uint32            `json:"planes"`
	SampleType   string            `json:"sample_type"`
	FirstFrameID uint64            `json:"first_frame_id"`
	PixelScaleUm device.PixelScale `json:"pixel_scale_um"`
	Chunking     device.Chunking   `json:"chunking"`
	Metadata     json.RawMessage   `json:"metadata,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	StoppedAt    *time.Time        `json:"stopped_at,omitempty"`
	Frames       uint64            `json:"frames"`
	Bytes        uint64            `json:"bytes"`
}

func newSidecar(name string, p device.StorageProperties, desc device.StreamDescription, now time.Time) Sidecar {
	s := Sidecar{
		SessionID:    uuid.NewString(),
		Device:       name,
		Width:        desc.Shape.Width,
		Height:       desc.Shape.Height,
		Channels:     desc.Shape.Channels,
		Planes:       desc.Shape.Planes,
		SampleType:   desc.Type.String(),
		FirstFrameID: p.FirstFrameID,
		PixelScaleUm: p.PixelScaleUm,
		Chunking:     p.Chunking,
		StartedAt:    now.UTC(),
	}
	if p.ExternalMetadataJSON != "" {
		s.Metadata = json.RawMessage(p.ExternalMetadataJSON)
	}
	return s
}

// SidecarPath returns the sidecar location for a data file.
func SidecarPath(filename string) string {
	return filename + ".json"
}

// writeSidecar persists s atomically (write to temp file, then rename).
func writeSidecar(path string, s Sidecar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// ReadSidecar loads the sidecar written for filename.
func ReadSidecar(filename string) (Sidecar, error) {
	data, err := os.ReadFile(SidecarPath(filename))
	if err != nil {
		return Sidecar{}, err
	}
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return Sidecar{}, err
	}
	return s, nil
}
