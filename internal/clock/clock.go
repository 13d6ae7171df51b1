// Package clock provides the time source used by capture loops and the
// acquisition harness, and a deadline helper for polling with a time limit.
package clock

import (
	"context"
	"time"
)

// Clock is a source of time.
type Clock interface {
	Now() time.Time
	// Sleep pauses for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error
}

// System is the wall clock.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (System) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deadline is a point in time measured from a start mark.
//
//	d := clock.NewDeadline(clk)
//	d.Shift(20 * time.Second)
//	for !d.Expired() { ... }
type Deadline struct {
	clk   Clock
	start time.Time
	at    time.Time
}

// NewDeadline marks the current time as both start and deadline.
func NewDeadline(clk Clock) *Deadline {
	if clk == nil {
		clk = System{}
	}
	now := clk.Now()
	return &Deadline{clk: clk, start: now, at: now}
}

// Shift moves the deadline by d.
func (d *Deadline) Shift(dur time.Duration) {
	d.at = d.at.Add(dur)
}

// Expired reports whether the deadline has passed.
func (d *Deadline) Expired() bool {
	return !d.clk.Now().Before(d.at)
}

// Remaining returns the time left until the deadline, negative once passed.
func (d *Deadline) Remaining() time.Duration {
	return d.at.Sub(d.clk.Now())
}

// Elapsed returns the time since the deadline was created.
func (d *Deadline) Elapsed() time.Duration {
	return d.clk.Now().Sub(d.start)
}

// SleepUntil sleeps until period has passed since the start mark. It returns
// at once if that point is already behind.
func (d *Deadline) SleepUntil(ctx context.Context, period time.Duration) error {
	return d.clk.Sleep(ctx, period-d.Elapsed())
}
