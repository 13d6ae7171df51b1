// Package storage implements the builtin storage devices: trash discards
// frames, raw writes the record stream verbatim, tiff writes one image per
// frame.
package storage

import (
	"context"
	"sync/atomic"

	"github.com/bft-labs/acquire/pkg/device"
	"github.com/bft-labs/acquire/pkg/frame"
)

// Trash accepts and discards every frame.
type Trash struct {
	frames atomic.Uint64
	bytes  atomic.Uint64
}

// NewTrash creates a trash device.
func NewTrash() *Trash { return &Trash{} }

func (t *Trash) Name() string                    { return NameTrash }
func (t *Trash) Start(ctx context.Context) error { return nil }
func (t *Trash) Stop() error                     { return nil }
func (t *Trash) Close() error                    { return nil }

// Configure accepts any settings.
func (t *Trash) Configure(p device.StorageProperties, _ device.StreamDescription) (device.StorageProperties, error) {
	return p, p.Validate()
}

// Append counts and discards the frames in rng.
func (t *Trash) Append(ctx context.Context, rng frame.Range) (int, error) {
	n, err := rng.Count()
	if err != nil {
		return 0, err
	}
	t.frames.Add(uint64(n))
	t.bytes.Add(uint64(rng.Len()))
	return rng.Len(), nil
}

// Frames returns the number of frames discarded so far.
func (t *Trash) Frames() uint64 { return t.frames.Load() }
