package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"PharmaWatch/internal/metrics"
	"PharmaWatch/internal/ports"
)

// State is the scheduler's position in its run loop.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateSleeping State = "sleeping"
	StateRetrying State = "retrying"
)

// IntervalScheduler runs a job repeatedly. A successful run is followed by a
// sleep until interval has passed since the run started; a failed run is
// retried after retryDelay, indefinitely.
type IntervalScheduler struct {
	interval   time.Duration
	retryDelay time.Duration
	clock      ports.Clock
	logger     *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler; a nil clock uses wall time.
func NewIntervalScheduler(interval, retryDelay time.Duration, clock ports.Clock, logger *slog.Logger) *IntervalScheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &IntervalScheduler{
		interval:   interval,
		retryDelay: retryDelay,
		clock:      clock,
		logger:     logger,
		state:      StateIdle,
	}
}

// State reports the current loop state.
func (s *IntervalScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status reports the current loop state as text.
func (s *IntervalScheduler) Status() string {
	return string(s.State())
}

func (s *IntervalScheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Start runs the loop in a background goroutine. Calling Start while a loop
// is still running is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(ctx context.Context) error) error {
	if job == nil {
		return nil
	}

	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		_ = s.Run(runCtx, job)

		s.mu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.mu.Unlock()
		cancel()
	}()
	return nil
}

// Stop cancels the loop and waits for the current job to return or ctx to expire.
// The loop keeps its slot until it has exited, so Start cannot overlap a
// loop that outlived an expired Stop.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the loop in the caller's goroutine until ctx is cancelled.
func (s *IntervalScheduler) Run(ctx context.Context, job func(ctx context.Context) error) error {
	defer s.setState(StateIdle)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started := s.clock.Now()
		s.setState(StateRunning)

		if err := job(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.setState(StateRetrying)
			metrics.SchedulerRetries.Inc()
			s.logger.Warn("refresh failed, retrying", "error", err, "retry_in", s.retryDelay)
			if err := s.clock.Sleep(ctx, s.retryDelay); err != nil {
				return err
			}
			continue
		}

		wait := started.Add(s.interval).Sub(s.clock.Now())
		if wait <= 0 {
			s.logger.Warn("refresh overran interval", "interval", s.interval, "overrun", -wait)
			continue
		}

		s.setState(StateSleeping)
		s.logger.Info("waiting for next refresh", "next_run", started.Add(s.interval))
		if err := s.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// SystemClock is the wall-clock implementation of ports.Clock.
type SystemClock struct{}

var _ ports.Clock = SystemClock{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep blocks for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsShutdown reports whether err only signals the loop was stopped.
func IsShutdown(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
