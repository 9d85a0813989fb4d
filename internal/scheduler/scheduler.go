// Package scheduler drives the two sweeps on wall-clock time. The sweeps are
// independent and idempotent, so the schedule only has to guarantee "at least
// once per hour"; running more often, overlapping, or catching up after a gap
// is harmless.
package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arkivbox/retention/internal/alerting"
	"github.com/arkivbox/retention/internal/lifecycle"
	"github.com/arkivbox/retention/internal/pkg/distlock"
)

// TransitionSweep is the lifecycle engine surface the scheduler drives.
type TransitionSweep interface {
	RunSweep(ctx context.Context, now time.Time) (*lifecycle.Summary, error)
}

// AlertSweep is the alert processor surface the scheduler drives.
type AlertSweep interface {
	RunSweep(ctx context.Context, now time.Time) (*alerting.Summary, error)
}

// LockFactory builds a fresh lock instance per sweep run.
type LockFactory func(name string) distlock.Lock

// Config holds the cron expressions and startup behavior.
type Config struct {
	TransitionSchedule string
	AlertSchedule      string
	RunOnStart         bool
}

// Scheduler owns the cron entries and the per-run lock/bookkeeping wrapper.
type Scheduler struct {
	cfg    Config
	engine TransitionSweep
	alerts AlertSweep
	runs   *RunStore
	locks  LockFactory

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	lastRun map[SweepKind]time.Time
	healthy bool
}

func New(cfg Config, engine TransitionSweep, alerts AlertSweep, runs *RunStore, locks LockFactory) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		engine:  engine,
		alerts:  alerts,
		runs:    runs,
		locks:   locks,
		cron:    cron.New(),
		lastRun: make(map[SweepKind]time.Time),
		healthy: true,
	}
}

// Start validates the schedules, registers the cron entries and begins
// ticking. With RunOnStart both sweeps fire once immediately, which covers
// catch-up after downtime.
func (s *Scheduler) Start() error {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if _, err := cron.ParseStandard(s.cfg.TransitionSchedule); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(s.cfg.AlertSchedule); err != nil {
		return err
	}

	s.cron.AddFunc(s.cfg.TransitionSchedule, func() { s.runTransition() })
	s.cron.AddFunc(s.cfg.AlertSchedule, func() { s.runAlerts() })
	s.cron.Start()

	log.Printf("[Scheduler] started: transition=%q alerts=%q", s.cfg.TransitionSchedule, s.cfg.AlertSchedule)

	if s.cfg.RunOnStart {
		go func() {
			s.runTransition()
			s.runAlerts()
		}()
	}
	return nil
}

// Stop halts the cron loop and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("[Scheduler] stopped")
}

// Healthy reports whether the most recent sweep of each kind succeeded.
func (s *Scheduler) Healthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// LastRun returns when a sweep kind last completed, zero if never.
func (s *Scheduler) LastRun(kind SweepKind) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun[kind]
}

func (s *Scheduler) runTransition() {
	s.runLocked(KindTransition, func(ctx context.Context, now time.Time) (processed, advanced, skipped, errored int, err error) {
		sum, err := s.engine.RunSweep(ctx, now)
		if sum != nil {
			processed, advanced, skipped, errored = sum.Processed, sum.Advanced, sum.Skipped, sum.Errored
		}
		return processed, advanced, skipped, errored, err
	})
}

func (s *Scheduler) runAlerts() {
	s.runLocked(KindAlerts, func(ctx context.Context, now time.Time) (processed, advanced, skipped, errored int, err error) {
		sum, err := s.alerts.RunSweep(ctx, now)
		if sum != nil {
			processed, advanced, skipped, errored = sum.Processed, sum.Fired, sum.Skipped, sum.Errored
		}
		return processed, advanced, skipped, errored, err
	})
}

func (s *Scheduler) runLocked(kind SweepKind, sweep func(context.Context, time.Time) (int, int, int, int, error)) {
	ctx := s.ctx
	if ctx.Err() != nil {
		return
	}

	lock := s.locks(string(kind))
	acquired, err := lock.TryAcquire(ctx)
	if err != nil {
		log.Printf("[Scheduler] %s lock: %v", kind, err)
		s.setHealth(kind, false)
		return
	}
	if !acquired {
		// Another worker instance is already sweeping; its run counts.
		log.Printf("[Scheduler] %s sweep already running elsewhere, skipping", kind)
		return
	}
	defer lock.Release(ctx)

	now := time.Now().UTC()
	runID, err := s.runs.Begin(ctx, kind, now)
	if err != nil {
		log.Printf("[Scheduler] %s begin run: %v", kind, err)
		s.setHealth(kind, false)
		return
	}

	processed, advanced, skipped, errored, err := sweep(ctx, now)
	if err != nil {
		// The sweep is retried wholesale on the next tick; already-applied
		// work stands because every record's advance is idempotent.
		log.Printf("[Scheduler] %s sweep: %v", kind, err)
		s.setHealth(kind, false)
	} else {
		s.setHealth(kind, true)
	}

	if finishErr := s.runs.Finish(ctx, runID, processed, advanced, skipped, errored); finishErr != nil {
		log.Printf("[Scheduler] %s finish run: %v", kind, finishErr)
	}
	lastSweepTimestamp.WithLabelValues(string(kind)).SetToCurrentTime()
}

func (s *Scheduler) setHealth(kind SweepKind, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthy = ok
	if ok {
		s.lastRun[kind] = time.Now()
	}
}
