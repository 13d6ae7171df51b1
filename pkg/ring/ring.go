package ring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/acquire/pkg/frame"
)

// Ring buffer errors.
var (
	// ErrConcurrentMap is returned when MapRead is called while a previous
	// mapping is still held.
	ErrConcurrentMap = errors.New("ring: buffer already mapped by a consumer")

	// ErrNotMapped is returned when bytes are released without a mapping.
	ErrNotMapped = errors.New("ring: unmap without a mapped view")

	// ErrPartialFrameRelease is returned when the released byte count does not
	// end on a record boundary of the mapped view.
	ErrPartialFrameRelease = errors.New("ring: release does not end on a frame boundary")

	// ErrNoSpace is returned by Reserve when the overflow policy gives up on
	// finding room for the incoming frame.
	ErrNoSpace = errors.New("ring: no space for frame")

	// ErrFrameTooLarge is returned when a record can never fit in the arena.
	ErrFrameTooLarge = errors.New("ring: frame larger than buffer capacity")

	// ErrClosed is returned by producer operations after Close.
	ErrClosed = errors.New("ring: buffer closed")

	// ErrNoReservation is returned by Commit without a matching Reserve.
	ErrNoReservation = errors.New("ring: commit without reservation")
)

// OverflowPolicy selects what the producer does when the arena is full.
type OverflowPolicy int

const (
	// Block waits for the consumer to release space.
	Block OverflowPolicy = iota
	// Drop discards the incoming frame and counts it.
	Drop
)

// String returns "block" or "drop".
func (p OverflowPolicy) String() string {
	switch p {
	case Block:
		return "block"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy converts "block" or "drop" into an OverflowPolicy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "block", "":
		return Block, nil
	case "drop":
		return Drop, nil
	default:
		return 0, fmt.Errorf("ring: unknown overflow policy %q", s)
	}
}

// Config holds the buffer parameters.
type Config struct {
	// Capacity is the arena size in bytes. It is rounded up to the record
	// alignment.
	Capacity int

	// Policy is the overflow policy. Default: Block.
	Policy OverflowPolicy

	// BlockTimeout bounds the wait under Block. Zero waits until the context
	// is cancelled or the buffer is closed; on expiry the frame is dropped.
	BlockTimeout time.Duration
}

// Stats is a point-in-time snapshot of buffer counters.
type Stats struct {
	Capacity        int
	UsedBytes       int
	PublishedFrames uint64
	PublishedBytes  uint64
	ConsumedBytes   uint64
	Drops           uint64
}

// Buffer is a single-producer, single-consumer circular arena of frame
// records.
//
// Layout: the producer owns the write cursor w, the consumer owns the read
// cursor r. When the tail cannot hold the next record, the producer wraps to
// offset 0 and remembers the old write cursor as hi. While wrapped, readable
// data is [r, hi) followed by [0, w); otherwise it is [r, w). A mapped view is
// always one contiguous run and never contains a partial record.
type Buffer struct {
	mu      sync.Mutex
	arena   []byte
	r, w    int
	hi      int
	wrapped bool

	// pending reservation
	resOff  int
	resLen  int
	resWrap bool

	mapped    bool
	mapOff    int
	mapLen    int
	closed    bool
	freed     chan struct{}
	policy    OverflowPolicy
	blockWait time.Duration

	published atomic.Uint64
	pubBytes  atomic.Uint64
	consumed  atomic.Uint64
	drops     atomic.Uint64
}

// New allocates a buffer.
func New(cfg Config) (*Buffer, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("ring: capacity must be positive, got %d", cfg.Capacity)
	}
	capacity := (cfg.Capacity + frame.Alignment - 1) &^ (frame.Alignment - 1)
	return &Buffer{
		arena:     make([]byte, capacity),
		freed:     make(chan struct{}),
		policy:    cfg.Policy,
		blockWait: cfg.BlockTimeout,
		resLen:    -1,
	}, nil
}

// Capacity returns the arena size in bytes.
func (b *Buffer) Capacity() int {
	return len(b.arena)
}

// Reserve returns n contiguous writable bytes for the next record. The
// producer fills them and then calls Commit; a reservation that is never
// committed is simply replaced by the next Reserve.
//
// Under Drop a full arena returns ErrNoSpace at once. Under Block the call
// waits for the consumer, returning ErrNoSpace if BlockTimeout elapses,
// ctx.Err() on cancellation, or ErrClosed after Close.
func (b *Buffer) Reserve(ctx context.Context, n int) ([]byte, error) {
	if n <= 0 || n%frame.Alignment != 0 {
		return nil, fmt.Errorf("ring: reserve size %d must be a positive multiple of %d", n, frame.Alignment)
	}
	if n > len(b.arena) {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, len(b.arena))
	}

	var deadline <-chan time.Time
	for {
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			return nil, ErrClosed
		}
		if dst, ok := b.tryReserveLocked(n); ok {
			b.mu.Unlock()
			return dst, nil
		}
		freed := b.freed
		b.mu.Unlock()

		if b.policy == Drop {
			return nil, ErrNoSpace
		}
		if deadline == nil && b.blockWait > 0 {
			t := time.NewTimer(b.blockWait)
			defer t.Stop()
			deadline = t.C
		}

		select {
		case <-freed:
		case <-deadline:
			return nil, ErrNoSpace
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// tryReserveLocked finds room for n bytes without moving the write cursor.
func (b *Buffer) tryReserveLocked(n int) ([]byte, bool) {
	b.normalizeLocked()
	// Rewind an empty, unwrapped arena so large records see the whole of it.
	if !b.wrapped && b.r == b.w && !(b.mapped && b.mapLen > 0) {
		b.r, b.w = 0, 0
	}

	if b.wrapped {
		if b.r-b.w >= n {
			b.setReservation(b.w, n, false)
			return b.arena[b.w : b.w+n : b.w+n], true
		}
		return nil, false
	}
	if len(b.arena)-b.w >= n {
		b.setReservation(b.w, n, false)
		return b.arena[b.w : b.w+n : b.w+n], true
	}
	// Wrap: the head region [0, r) must hold the record.
	if b.r >= n {
		b.setReservation(0, n, true)
		return b.arena[0:n:n], true
	}
	return nil, false
}

func (b *Buffer) setReservation(off, n int, wrap bool) {
	b.resOff, b.resLen, b.resWrap = off, n, wrap
}

// Commit publishes the reserved record. The first n bytes of the reservation
// must hold a complete record whose bytes_of_frame equals n.
func (b *Buffer) Commit(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.resLen < 0 || n != b.resLen {
		return ErrNoReservation
	}
	if b.resWrap {
		b.hi = b.w
		b.wrapped = true
	}
	b.w = b.resOff + n
	b.resLen = -1

	b.published.Add(1)
	b.pubBytes.Add(uint64(n))
	return nil
}

// Publish copies an encoded header and payload into the buffer as one
// record. It is the copying counterpart of Reserve/Commit.
func (b *Buffer) Publish(ctx context.Context, h frame.Header, payload []byte) error {
	n := frame.RecordBytes(len(payload))
	h.BytesOfFrame = uint64(n)
	dst, err := b.Reserve(ctx, n)
	if err != nil {
		if errors.Is(err, ErrNoSpace) {
			b.RecordDrop()
		}
		return err
	}
	frame.PutHeader(dst, h)
	copy(dst[frame.HeaderSize:], payload)
	clear(dst[frame.HeaderSize+len(payload):])
	return b.Commit(n)
}

// RecordDrop counts a frame the producer discarded.
func (b *Buffer) RecordDrop() {
	b.drops.Add(1)
}

// MapRead returns every published, unreleased record as one contiguous
// range. It never blocks. The view stays valid and unchanged until UnmapRead.
func (b *Buffer) MapRead() (frame.Range, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mapped {
		return frame.Range{}, ErrConcurrentMap
	}
	b.normalizeLocked()

	end := b.w
	if b.wrapped {
		end = b.hi
	}
	b.mapped = true
	b.mapOff = b.r
	b.mapLen = end - b.r
	return frame.NewRange(b.arena[b.r:end:end]), nil
}

// UnmapRead releases n bytes from the front of the mapped view. n must be
// the summed length of a prefix of the mapped records. On error the mapping
// is kept so the caller can retry with a valid count.
func (b *Buffer) UnmapRead(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.mapped {
		if n == 0 {
			return nil
		}
		return ErrNotMapped
	}
	if n < 0 || n > b.mapLen {
		return fmt.Errorf("%w: %d bytes of %d mapped", ErrPartialFrameRelease, n, b.mapLen)
	}
	view := frame.NewRange(b.arena[b.mapOff : b.mapOff+b.mapLen])
	if !view.PrefixBytes(n) {
		return fmt.Errorf("%w: %d bytes", ErrPartialFrameRelease, n)
	}

	b.mapped = false
	b.mapLen = 0
	if n == 0 {
		return nil
	}
	b.r += n
	b.normalizeLocked()
	b.consumed.Add(uint64(n))

	close(b.freed)
	b.freed = make(chan struct{})
	return nil
}

// normalizeLocked moves the read cursor back to the start once the consumer
// has drained the upper segment of a wrapped arena.
func (b *Buffer) normalizeLocked() {
	if b.wrapped && b.r == b.hi {
		b.r = 0
		b.hi = 0
		b.wrapped = false
	}
}

// Discard drops every unread record and any outstanding mapping.
func (b *Buffer) Discard() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.r, b.w, b.hi = 0, 0, 0
	b.wrapped = false
	b.mapped = false
	b.mapLen = 0
	b.resLen = -1

	close(b.freed)
	b.freed = make(chan struct{})
}

// Close wakes any producer blocked in Reserve and fails future reservations.
// Already published data remains mappable.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.freed)
	b.freed = make(chan struct{})
}

// Used returns the number of unreleased bytes.
func (b *Buffer) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.usedLocked()
}

func (b *Buffer) usedLocked() int {
	if b.wrapped {
		return (b.hi - b.r) + b.w
	}
	return b.w - b.r
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	used := b.usedLocked()
	b.mu.Unlock()

	return Stats{
		Capacity:        len(b.arena),
		UsedBytes:       used,
		PublishedFrames: b.published.Load(),
		PublishedBytes:  b.pubBytes.Load(),
		ConsumedBytes:   b.consumed.Load(),
		Drops:           b.drops.Load(),
	}
}
