package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"PharmaWatch/internal/metrics"
	"PharmaWatch/internal/ports"
)

// ErrFeedFailed is returned by RunCycle when the shortage feed could not be refreshed.
var ErrFeedFailed = errors.New("shortage feed refresh failed")

const (
	// PhaseIdle is reported between cycles.
	PhaseIdle = "idle"
	// PhaseFeed is reported while the shortage feed is ingested.
	PhaseFeed = "running:feed"
)

// RefresherDeps wires the ingestion routines into one refresh cycle.
type RefresherDeps struct {
	Crawlers []ports.LetterCrawler
	Feed     ports.ShortageRefresher
	Store    ports.SnapshotReader
	Logger   *slog.Logger
}

// Refresher runs the letter crawls in order, then the shortage feed.
type Refresher struct {
	crawlers []ports.LetterCrawler
	feed     ports.ShortageRefresher
	store    ports.SnapshotReader
	logger   *slog.Logger

	mu       sync.RWMutex
	phase    string
	started  time.Time
	finished time.Time
	lastErr  error
}

// NewRefresher constructs the refresh cycle.
func NewRefresher(deps RefresherDeps) *Refresher {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Refresher{
		crawlers: deps.Crawlers,
		feed:     deps.Feed,
		store:    deps.Store,
		logger:   logger,
		phase:    PhaseIdle,
	}
}

// RunCycle executes one refresh. Crawler failures are logged and the cycle
// moves on; only a feed failure is returned, wrapped in ErrFeedFailed.
func (r *Refresher) RunCycle(ctx context.Context) error {
	log := r.logger.With("cycle_id", uuid.NewString())
	r.begin()
	log.Info("starting refresh")

	for _, c := range r.crawlers {
		phase := "running:" + c.Name()
		r.setPhase(phase)

		start := time.Now()
		stats, err := c.Crawl(ctx)
		if err != nil {
			metrics.RecordPhase(phase, "error", time.Since(start).Seconds())
			log.Error("crawl failed", "source", c.Name(), "error", err)
			continue
		}
		metrics.RecordPhase(phase, "ok", time.Since(start).Seconds())
		log.Info("crawl finished",
			"source", c.Name(),
			"pages", stats.Pages,
			"candidates", stats.Candidates,
			"inserted", stats.Inserted,
			"dropped", stats.Dropped,
		)
	}

	if r.feed != nil {
		r.setPhase(PhaseFeed)
		start := time.Now()
		stats, err := r.feed.Refresh(ctx)
		if err != nil {
			metrics.RecordPhase(PhaseFeed, "error", time.Since(start).Seconds())
			log.Error("shortage feed failed", "error", err)
			err = fmt.Errorf("%w: %w", ErrFeedFailed, err)
			r.end(err)
			return err
		}
		metrics.RecordPhase(PhaseFeed, "ok", time.Since(start).Seconds())
		log.Info("shortage feed finished", "parsed", stats.Parsed, "dropped", stats.Dropped)
	}

	r.end(nil)
	if r.store != nil {
		shortages, letters := r.store.Counts()
		log.Info("refresh finished", "shortages", shortages, "letters", letters)
	}
	return nil
}

// CycleStatus describes the refresher's progress.
type CycleStatus struct {
	Phase        string
	LastStarted  time.Time
	LastFinished time.Time
	LastError    error
}

// Status returns the current phase and the outcome of the last cycle.
func (r *Refresher) Status() CycleStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CycleStatus{
		Phase:        r.phase,
		LastStarted:  r.started,
		LastFinished: r.finished,
		LastError:    r.lastErr,
	}
}

func (r *Refresher) setPhase(phase string) {
	r.mu.Lock()
	r.phase = phase
	r.mu.Unlock()
}

func (r *Refresher) begin() {
	r.mu.Lock()
	r.started = time.Now()
	r.mu.Unlock()
}

func (r *Refresher) end(err error) {
	r.mu.Lock()
	r.phase = PhaseIdle
	r.finished = time.Now()
	r.lastErr = err
	r.mu.Unlock()
}
