package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/acquire/internal/cliconfig"
	"github.com/bft-labs/acquire/internal/harness"
	"github.com/bft-labs/acquire/pkg/acquire"
	"github.com/bft-labs/acquire/pkg/log"
	"github.com/bft-labs/acquire/pkg/ring"
	"github.com/bft-labs/acquire/plugins/propertieswatcher"
)

// run performs one acquisition: configure, start, consume every enabled
// stream until its frame count or the time limit, then stop or abort.
func run(ctx context.Context, cfg cliconfig.Config, logger log.Logger, out io.Writer) (err error) {
	opts := []acquire.Option{acquire.WithLogger(logger)}
	if cfg.Watch {
		opts = append(opts, propertieswatcher.WithDefaultPropertiesWatcher(cfg.PropertiesPath))
	}
	rt, err := acquire.Init(opts...)
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}
	defer func() {
		if serr := rt.Shutdown(); serr != nil && err == nil {
			err = fmt.Errorf("shutdown: %w", serr)
		}
	}()

	props, err := cfg.Properties(rt.DeviceManager())
	if err != nil {
		return err
	}
	if props, err = rt.Configure(props); err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := rt.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	results := make([]harness.Result, acquire.MaxStreams)
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range props.Video {
		if !v.Enabled() {
			continue
		}
		if v.Buffer.AutoDrain {
			g.Go(func() error { return waitFinished(gctx, rt, i, cfg.TimeLimit, cfg.Throttle) })
			continue
		}
		hc := harness.Config{
			Stream:    i,
			Frames:    v.MaxFrameCount,
			TimeLimit: cfg.TimeLimit,
			Throttle:  cfg.Throttle,
			Shape:     v.Camera.Settings.FrameShape(),
			Type:      v.Camera.Settings.PixelType,
			Logger:    logger,
		}
		// Dropped frames never arrive, so a drop stream runs to the time limit.
		if v.Buffer.Overflow == ring.Drop {
			hc.Frames = 0
		}
		g.Go(func() error {
			res, err := harness.Run(gctx, rt, hc)
			results[i] = res
			if err != nil {
				return fmt.Errorf("stream %d: %w", i, err)
			}
			return nil
		})
	}
	runErr := g.Wait()

	if cfg.Graceful && runErr == nil {
		err = rt.Stop()
	} else {
		err = rt.Abort()
	}
	if err != nil {
		return err
	}

	for i, v := range props.Video {
		if !v.Enabled() {
			continue
		}
		st, err := rt.Stats(i)
		if err != nil {
			return err
		}
		res := results[i]
		fmt.Fprintf(out, "stream %d: %s -> %s\n", i, v.Camera.Identifier.Name, v.Storage.Identifier.Name)
		if !v.Buffer.AutoDrain {
			fmt.Fprintf(out, "  read     %d frames, ids %d..%d, %d gaps, %d polls in %s\n",
				res.Frames, res.FirstID, res.LastID, res.Gaps, res.Polls, res.Elapsed.Round(time.Millisecond))
		}
		fmt.Fprintf(out, "  captured %d frames, dropped %d, stored %d bytes\n",
			st.Captured, st.Dropped, st.StoredBytes)
	}
	return runErr
}

// waitFinished polls an auto-drained stream until capture ends or limit
// passes. An unbounded stream runs for the full limit.
func waitFinished(ctx context.Context, rt *acquire.Runtime, i int, limit, period time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		st, err := rt.Stats(i)
		if err != nil {
			return err
		}
		switch st.Status {
		case acquire.StreamFinished:
			return nil
		case acquire.StreamFaulted:
			return fmt.Errorf("stream %d: %w", i, st.Fault)
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
