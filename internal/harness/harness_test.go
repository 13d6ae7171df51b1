package harness

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/frame"
)

var testShape = frame.Shape{Channels: 1, Width: 4, Height: 2, Planes: 1}

func encode(ids ...uint64) []byte {
	var out []byte
	n := frame.RecordBytes(frame.PayloadBytes(testShape, frame.SampleU8))
	for _, id := range ids {
		rec := make([]byte, n)
		frame.PutHeader(rec, frame.Header{BytesOfFrame: uint64(n), FrameID: id, Shape: testShape, Type: frame.SampleU8})
		out = append(out, rec...)
	}
	return out
}

// source hands out one batch per MapRead.
type source struct {
	mu       sync.Mutex
	batches  [][]byte
	mapped   []byte
	released int
	mapErr   error
}

func (s *source) MapRead(stream int) (frame.Range, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapErr != nil {
		return frame.Range{}, s.mapErr
	}
	if len(s.batches) == 0 {
		s.mapped = nil
		return frame.Range{}, nil
	}
	s.mapped, s.batches = s.batches[0], s.batches[1:]
	return frame.NewRange(s.mapped), nil
}

func (s *source) UnmapRead(stream int, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n != len(s.mapped) {
		return errors.New("partial release")
	}
	s.released += n
	return nil
}

func TestRun_CountsFrames(t *testing.T) {
	src := &source{batches: [][]byte{encode(0, 1), nil, encode(2, 3, 4)}}
	var seen []uint64
	res, err := Run(context.Background(), src, Config{
		Frames:    5,
		TimeLimit: 5 * time.Second,
		Throttle:  time.Millisecond,
		Shape:     testShape,
		Type:      frame.SampleU8,
		OnFrame: func(f frame.VideoFrame) error {
			seen = append(seen, f.FrameID)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(5), res.Frames)
	assert.Equal(t, uint64(4), res.LastID)
	assert.Zero(t, res.Gaps)
	assert.Equal(t, 3, res.Polls)
	assert.Equal(t, 1, res.EmptyPolls)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4}, seen)
	assert.Equal(t, uint64(src.released), res.Bytes)
}

func TestRun_Gaps(t *testing.T) {
	src := &source{batches: [][]byte{encode(0, 3), encode(4, 9)}}
	res, err := Run(context.Background(), src, Config{Frames: 4, TimeLimit: time.Second, Throttle: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), res.Gaps)
}

func TestRun_NonMonotonic(t *testing.T) {
	src := &source{batches: [][]byte{encode(2, 1)}}
	_, err := Run(context.Background(), src, Config{Frames: 2, TimeLimit: time.Second, Throttle: time.Millisecond})
	assert.Error(t, err)
}

func TestRun_ShapeMismatch(t *testing.T) {
	src := &source{batches: [][]byte{encode(0)}}
	want := testShape
	want.Width = 8
	_, err := Run(context.Background(), src, Config{Frames: 1, TimeLimit: time.Second, Shape: want})
	assert.ErrorContains(t, err, "shape")
}

func TestRun_Timeout(t *testing.T) {
	src := &source{}
	res, err := Run(context.Background(), src, Config{Frames: 1, TimeLimit: 30 * time.Millisecond, Throttle: time.Millisecond})
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Zero(t, res.Frames)
}

func TestRun_UnboundedEndsAtTimeLimit(t *testing.T) {
	src := &source{batches: [][]byte{encode(0, 1)}}
	res, err := Run(context.Background(), src, Config{TimeLimit: 30 * time.Millisecond, Throttle: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), res.Frames)
}

func TestRun_MapError(t *testing.T) {
	src := &source{mapErr: domain.ErrInvalidStateForOperation}
	_, err := Run(context.Background(), src, Config{Frames: 1, TimeLimit: time.Second})
	assert.ErrorIs(t, err, domain.ErrInvalidStateForOperation)
}

func TestRun_RequiresTimeLimit(t *testing.T) {
	_, err := Run(context.Background(), &source{}, Config{Frames: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
