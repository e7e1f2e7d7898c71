package usecase

import (
	"context"
	"time"

	"PharmaWatch/internal/ports"
)

// Status is the externally visible state of the refresh pipeline.
type Status struct {
	Scheduler         string     `json:"scheduler"`
	Phase             string     `json:"phase"`
	LastCycleStarted  *time.Time `json:"last_cycle_started,omitempty"`
	LastCycleFinished *time.Time `json:"last_cycle_finished,omitempty"`
	LastError         string     `json:"last_error,omitempty"`
	Shortages         int        `json:"shortages"`
	Letters           int        `json:"letters"`
	ShortagesReady    bool       `json:"shortages_ready"`
	LettersReady      bool       `json:"letters_ready"`
}

// Scheduler wires the interval driver with the refresh cycle.
type Scheduler struct {
	driver    ports.Scheduler
	refresher *Refresher
	store     ports.SnapshotReader
}

// NewScheduler returns a helper to start/stop recurring refreshes.
func NewScheduler(driver ports.Scheduler, refresher *Refresher, store ports.SnapshotReader) *Scheduler {
	return &Scheduler{driver: driver, refresher: refresher, store: store}
}

// Start registers the refresh cycle with the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.refresher == nil {
		return nil
	}

	return s.driver.Start(ctx, s.refresher.RunCycle)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}

// Status collects driver state, refresher progress and collection sizes.
func (s *Scheduler) Status() Status {
	var st Status
	if s.driver != nil {
		st.Scheduler = s.driver.Status()
	}
	if s.refresher != nil {
		cs := s.refresher.Status()
		st.Phase = cs.Phase
		st.LastCycleStarted = timePtr(cs.LastStarted)
		st.LastCycleFinished = timePtr(cs.LastFinished)
		if cs.LastError != nil {
			st.LastError = cs.LastError.Error()
		}
	}
	if s.store != nil {
		st.Shortages, st.Letters = s.store.Counts()
		st.ShortagesReady, st.LettersReady = s.store.Ready()
	}
	return st
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
