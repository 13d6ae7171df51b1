package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
)

// Raw writes frame records to a single file exactly as they appear in the
// ring buffer, renumbered to start at FirstFrameID. The output can be read
// back with frame.OpenFile.
type Raw struct {
	clk clock.Clock

	mu      sync.Mutex
	props   device.StorageProperties
	desc    device.StreamDescription
	file    *os.File
	w       *bufio.Writer
	sidecar Sidecar
	base    uint64
	seen    bool
	hdr     [frame.HeaderSize]byte
}

// NewRaw creates a raw storage device.
func NewRaw(clk clock.Clock) *Raw {
	if clk == nil {
		clk = clock.System{}
	}
	return &Raw{clk: clk}
}

func (r *Raw) Name() string { return NameRaw }

// Configure requires a filename.
func (r *Raw) Configure(p device.StorageProperties, desc device.StreamDescription) (device.StorageProperties, error) {
	if err := p.Validate(); err != nil {
		return device.StorageProperties{}, err
	}
	if p.Filename == "" {
		return device.StorageProperties{}, domain.Invalid(-1, "storage.filename", "required by %s storage", NameRaw)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		return device.StorageProperties{}, fmt.Errorf("raw: configure while writing %s", r.props.Filename)
	}
	r.props, r.desc = p, desc
	return p, nil
}

// Start creates the output file and its sidecar.
func (r *Raw) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file != nil {
		return nil
	}
	if r.props.Filename == "" {
		return fmt.Errorf("raw: not configured")
	}
	if err := os.MkdirAll(filepath.Dir(r.props.Filename), 0o755); err != nil {
		return err
	}
	f, err := os.Create(r.props.Filename)
	if err != nil {
		return err
	}

	r.sidecar = newSidecar(NameRaw, r.props, r.desc, r.clk.Now())
	if err := writeSidecar(SidecarPath(r.props.Filename), r.sidecar); err != nil {
		f.Close()
		return err
	}
	r.file = f
	r.w = bufio.NewWriterSize(f, 1<<20)
	r.seen = false
	return nil
}

// Append writes every record in rng.
func (r *Raw) Append(ctx context.Context, rng frame.Range) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return 0, fmt.Errorf("raw: not started")
	}

	it := rng.Iter()
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		f := it.Frame()
		if !r.seen {
			r.base, r.seen = f.FrameID, true
		}
		h := f.Header
		h.FrameID = r.props.FirstFrameID + (f.FrameID - r.base)
		frame.PutHeader(r.hdr[:], h)

		if _, err := r.w.Write(r.hdr[:]); err != nil {
			return 0, err
		}
		if _, err := r.w.Write(f.Data[frame.HeaderSize:]); err != nil {
			return 0, err
		}
		r.sidecar.Frames++
		r.sidecar.Bytes += f.BytesOfFrame
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return rng.Len(), nil
}

// Stop flushes and closes the file and finalizes the sidecar.
func (r *Raw) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.w.Flush()
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	r.file, r.w = nil, nil

	stopped := r.clk.Now().UTC()
	r.sidecar.StoppedAt = &stopped
	if serr := writeSidecar(SidecarPath(r.props.Filename), r.sidecar); err == nil {
		err = serr
	}
	return err
}

// Close stops the device if it is writing.
func (r *Raw) Close() error {
	return r.Stop()
}
