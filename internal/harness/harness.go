// Package harness consumes frames from a running acquisition the way a
// test rig does: poll, verify, release, throttle, until a frame count or a
// time limit is reached.
package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/acquire/internal/clock"
	"github.com/bft-labs/acquire/internal/domain"
	"github.com/bft-labs/acquire/pkg/frame"
	"github.com/bft-labs/acquire/pkg/log"
)

// DefaultThrottle is the minimum period of one poll iteration.
const DefaultThrottle = 15 * time.Millisecond

// Source is the consumer side of a running acquisition.
type Source interface {
	MapRead(stream int) (frame.Range, error)
	UnmapRead(stream int, n int) error
}

// Config describes one consumption run.
type Config struct {
	Stream int

	// Frames is the number of frames to consume. Zero consumes until
	// TimeLimit and is not an error.
	Frames uint64

	// TimeLimit bounds the run. Required.
	TimeLimit time.Duration

	// Throttle is the minimum period of one poll. Default: DefaultThrottle.
	Throttle time.Duration

	// When Shape is non-zero, Shape and Type are checked on every frame.
	Shape frame.Shape
	Type  frame.SampleType

	// OnFrame, if set, sees every frame before it is released.
	OnFrame func(f frame.VideoFrame) error

	Clock  clock.Clock
	Logger log.Logger
}

// Result summarizes a run.
type Result struct {
	Frames     uint64
	Bytes      uint64
	FirstID    uint64
	LastID     uint64
	Gaps       uint64
	Polls      int
	EmptyPolls int
	Elapsed    time.Duration
}

// Run consumes frames from src. It returns ErrTimeout if TimeLimit passes
// before Frames frames arrive.
func Run(ctx context.Context, src Source, cfg Config) (Result, error) {
	if cfg.TimeLimit <= 0 {
		return Result{}, domain.Invalid(cfg.Stream, "time_limit", "must be positive")
	}
	if cfg.Throttle <= 0 {
		cfg.Throttle = DefaultThrottle
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	logger := log.With(cfg.Logger, log.Stream(cfg.Stream))

	var (
		res  Result
		seen bool
	)
	deadline := clock.NewDeadline(cfg.Clock)
	deadline.Shift(cfg.TimeLimit)

	for cfg.Frames == 0 || res.Frames < cfg.Frames {
		if deadline.Expired() {
			res.Elapsed = deadline.Elapsed()
			if cfg.Frames == 0 {
				return res, nil
			}
			return res, fmt.Errorf("%w: %d of %d frames after %s",
				domain.ErrTimeout, res.Frames, cfg.Frames, res.Elapsed)
		}
		tick := clock.NewDeadline(cfg.Clock)

		rng, err := src.MapRead(cfg.Stream)
		if err != nil {
			return res, err
		}
		res.Polls++
		if rng.Empty() {
			res.EmptyPolls++
		}

		it := rng.Iter()
		for it.Next() {
			f := it.Frame()
			if err := check(cfg, f); err != nil {
				return res, err
			}
			if seen {
				if f.FrameID <= res.LastID {
					return res, fmt.Errorf("frame id %d after %d", f.FrameID, res.LastID)
				}
				res.Gaps += f.FrameID - res.LastID - 1
			} else {
				res.FirstID, seen = f.FrameID, true
			}
			res.LastID = f.FrameID
			res.Frames++
			if cfg.OnFrame != nil {
				if err := cfg.OnFrame(f); err != nil {
					return res, err
				}
			}
		}
		if err := it.Err(); err != nil {
			return res, err
		}
		if err := src.UnmapRead(cfg.Stream, it.Offset()); err != nil {
			return res, err
		}
		res.Bytes += uint64(it.Offset())

		if it.Offset() > 0 {
			logger.Debug("frames consumed",
				log.Uint64("frames", res.Frames),
				log.Uint64("last_frame_id", res.LastID),
				log.Int("bytes", it.Offset()),
			)
		}
		if err := tick.SleepUntil(ctx, cfg.Throttle); err != nil {
			return res, err
		}
	}

	res.Elapsed = deadline.Elapsed()
	logger.Info("acquisition consumed",
		log.Uint64("frames", res.Frames),
		log.Uint64("gaps", res.Gaps),
		log.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func check(cfg Config, f frame.VideoFrame) error {
	if cfg.Shape == (frame.Shape{}) {
		return nil
	}
	if f.Shape != cfg.Shape {
		return fmt.Errorf("frame %d: shape %v, want %v", f.FrameID, f.Shape, cfg.Shape)
	}
	if f.Type != cfg.Type {
		return fmt.Errorf("frame %d: sample type %s, want %s", f.FrameID, f.Type, cfg.Type)
	}
	return nil
}
