package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances instantly on Sleep and records every requested duration.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func TestRunSleepsUntilOffsetFromCycleStart(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewIntervalScheduler(15*time.Minute, 5*time.Second, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err := s.Run(ctx, func(context.Context) error {
		runs++
		clock.advance(4 * time.Minute)
		if runs == 2 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, runs)
	require.NotEmpty(t, clock.recorded())
	assert.Equal(t, 11*time.Minute, clock.recorded()[0])
	assert.Equal(t, StateIdle, s.State())
}

func TestRunRetriesAfterFixedDelayOnFailure(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewIntervalScheduler(15*time.Minute, 5*time.Second, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	_ = s.Run(ctx, func(context.Context) error {
		runs++
		clock.advance(time.Minute)
		switch runs {
		case 1, 2:
			return errors.New("feed unavailable")
		default:
			cancel()
			return nil
		}
	})

	assert.Equal(t, 3, runs)
	// Two retry delays, then the regular sleep after the successful third run.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second, 14 * time.Minute}, clock.recorded())
}

func TestRunStartsImmediatelyAfterOverrun(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	s := NewIntervalScheduler(10*time.Minute, 5*time.Second, clock, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	_ = s.Run(ctx, func(context.Context) error {
		runs++
		if runs == 1 {
			clock.advance(12 * time.Minute)
			return nil
		}
		cancel()
		return nil
	})

	assert.Equal(t, 2, runs)
	// No sleep between the overrunning first run and the second one.
	assert.Equal(t, []time.Duration{10 * time.Minute}, clock.recorded())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, time.Second, nil, nil)
	ran := make(chan struct{}, 1)

	require.NoError(t, s.Start(context.Background(), func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))
	require.NoError(t, s.Start(context.Background(), func(context.Context) error { return nil }))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, StateIdle, s.State())
	require.NoError(t, s.Stop(ctx))
}

func TestStartAfterExpiredStopDoesNotOverlap(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(time.Hour, time.Second, nil, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	var first, second atomic.Int32

	require.NoError(t, s.Start(context.Background(), func(context.Context) error {
		if first.Add(1) == 1 {
			close(entered)
		}
		<-release
		return nil
	}))
	<-entered

	expired, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Stop(expired)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsShutdown(err))

	restart := func(context.Context) error {
		second.Add(1)
		return nil
	}
	require.NoError(t, s.Start(context.Background(), restart))
	assert.Never(t, func() bool { return second.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	close(release)
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.Equal(t, int32(1), first.Load())

	require.NoError(t, s.Start(context.Background(), restart))
	assert.Eventually(t, func() bool { return second.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(stopCtx))
}

func TestSystemClockSleepCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SystemClock{}.Sleep(ctx, time.Hour)
	assert.True(t, IsShutdown(err))
}
