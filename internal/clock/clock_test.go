package clock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when slept on.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if d > 0 {
		f.mu.Lock()
		f.now = f.now.Add(d)
		f.mu.Unlock()
	}
	return ctx.Err()
}

func TestDeadline(t *testing.T) {
	clk := &fakeClock{now: time.Unix(100, 0)}
	d := NewDeadline(clk)
	assert.True(t, d.Expired(), "unshifted deadline is now")

	d.Shift(20 * time.Second)
	assert.False(t, d.Expired())
	assert.Equal(t, 20*time.Second, d.Remaining())

	require.NoError(t, clk.Sleep(context.Background(), 15*time.Second))
	assert.Equal(t, 15*time.Second, d.Elapsed())
	assert.Equal(t, 5*time.Second, d.Remaining())

	require.NoError(t, clk.Sleep(context.Background(), 5*time.Second))
	assert.True(t, d.Expired())
	assert.Equal(t, time.Duration(0), d.Remaining())
}

func TestDeadline_SleepUntil(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	throttle := NewDeadline(clk)

	require.NoError(t, clk.Sleep(context.Background(), 30*time.Millisecond))
	require.NoError(t, throttle.SleepUntil(context.Background(), 100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, throttle.Elapsed())

	// Already past: no further sleep.
	require.NoError(t, throttle.SleepUntil(context.Background(), 50*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, throttle.Elapsed())
}

func TestSystem_Sleep(t *testing.T) {
	var clk System
	start := clk.Now()
	require.NoError(t, clk.Sleep(context.Background(), 5*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, clk.Sleep(ctx, time.Hour), context.Canceled)
}

func TestNewDeadline_NilClock(t *testing.T) {
	d := NewDeadline(nil)
	d.Shift(time.Hour)
	assert.False(t, d.Expired())
}
