package storage

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/tiff"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
)

// Tiff writes each frame as its own TIFF image. For a filename "out.tif"
// frame 7 is written to "out_000007.tif". Only single-channel u8 and u16
// frames are supported.
type Tiff struct {
	clk clock.Clock

	mu      sync.Mutex
	props   device.StorageProperties
	desc    device.StreamDescription
	started bool
	sidecar Sidecar
	base    uint64
	seen    bool
	gray    *image.Gray
	gray16  *image.Gray16
}

// NewTiff creates a tiff storage device.
func NewTiff(clk clock.Clock) *Tiff {
	if clk == nil {
		clk = clock.System{}
	}
	return &Tiff{clk: clk}
}

func (t *Tiff) Name() string { return NameTiff }

// Configure requires a filename and a single-channel u8 or u16 stream.
func (t *Tiff) Configure(p device.StorageProperties, desc device.StreamDescription) (device.StorageProperties, error) {
	if err := p.Validate(); err != nil {
		return device.StorageProperties{}, err
	}
	if p.Filename == "" {
		return device.StorageProperties{}, domain.Invalid(-1, "storage.filename", "required by %s storage", NameTiff)
	}
	if desc.Type != frame.SampleU8 && desc.Type != frame.SampleU16 {
		return device.StorageProperties{}, domain.Invalid(-1, "camera.pixel_type", "%s storage supports u8 and u16, got %s", NameTiff, desc.Type)
	}
	if desc.Shape.Channels > 1 || desc.Shape.Planes > 1 {
		return device.StorageProperties{}, domain.Invalid(-1, "camera.shape", "%s storage supports one channel and plane", NameTiff)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return device.StorageProperties{}, fmt.Errorf("tiff: configure while writing %s", t.props.Filename)
	}
	t.props, t.desc = p, desc
	return p, nil
}

// Start writes the sidecar and allocates the image buffer.
func (t *Tiff) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}
	if t.props.Filename == "" {
		return fmt.Errorf("tiff: not configured")
	}
	if err := os.MkdirAll(filepath.Dir(t.props.Filename), 0o755); err != nil {
		return err
	}
	rect := image.Rect(0, 0, int(t.desc.Shape.Width), int(t.desc.Shape.Height))
	t.gray, t.gray16 = nil, nil
	if t.desc.Type == frame.SampleU16 {
		t.gray16 = image.NewGray16(rect)
	} else {
		t.gray = image.NewGray(rect)
	}

	t.sidecar = newSidecar(NameTiff, t.props, t.desc, t.clk.Now())
	if err := writeSidecar(SidecarPath(t.props.Filename), t.sidecar); err != nil {
		return err
	}
	t.started = true
	t.seen = false
	return nil
}

// FramePath returns the file a frame with the given stored id is written to.
func FramePath(filename string, id uint64) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".tif"
	}
	return fmt.Sprintf("%s_%06d%s", strings.TrimSuffix(filename, filepath.Ext(filename)), id, ext)
}

// Append encodes every record in rng.
func (t *Tiff) Append(ctx context.Context, rng frame.Range) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return 0, fmt.Errorf("tiff: not started")
	}

	it := rng.Iter()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		f := it.Frame()
		if f.Shape.Width != t.desc.Shape.Width || f.Shape.Height != t.desc.Shape.Height || f.Type != t.desc.Type {
			return 0, fmt.Errorf("tiff: frame %d is %dx%d %s, configured for %dx%d %s", f.FrameID,
				f.Shape.Width, f.Shape.Height, f.Type, t.desc.Shape.Width, t.desc.Shape.Height, t.desc.Type)
		}
		if !t.seen {
			t.base, t.seen = f.FrameID, true
		}
		id := t.props.FirstFrameID + (f.FrameID - t.base)
		if err := t.writeFrame(FramePath(t.props.Filename, id), f.Payload()); err != nil {
			return 0, err
		}
		t.sidecar.Frames++
		t.sidecar.Bytes += f.BytesOfFrame
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return rng.Len(), nil
}

func (t *Tiff) writeFrame(path string, payload []byte) error {
	var img image.Image
	if t.gray16 != nil {
		// Payload samples are little endian; Gray16 stores big endian.
		pix := t.gray16.Pix
		for i := 0; i+1 < len(payload); i += 2 {
			pix[i], pix[i+1] = payload[i+1], payload[i]
		}
		img = t.gray16
	} else {
		copy(t.gray.Pix, payload)
		img = t.gray
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Stop finalizes the sidecar.
func (t *Tiff) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return nil
	}
	t.started = false
	stopped := t.clk.Now().UTC()
	t.sidecar.StoppedAt = &stopped
	return writeSidecar(SidecarPath(t.props.Filename), t.sidecar)
}

// Close stops the device if it is writing.
func (t *Tiff) Close() error {
	return t.Stop()
}
