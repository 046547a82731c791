// Package scheduler runs the periodic maintenance jobs of the pipeline.
//
// The reclaim tick sweeps expired leases back to their pending status so
// records abandoned by crashed workers re-enter the pool. The stats tick
// refreshes the status gauges from the store. Both jobs are idempotent and
// safe to run from several daemon instances at once.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/metrics"
)

// Config controls the scheduler's tick cadence.
type Config struct {
	// LeaseTimeout is the staleness cutoff for the reclaim sweep.
	LeaseTimeout time.Duration

	// ReclaimEvery is the interval between reclaim sweeps.
	ReclaimEvery time.Duration

	// StatsEvery is the interval between status gauge refreshes.
	StatsEvery time.Duration

	// TickTimeout bounds each tick's store calls.
	TickTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = 30 * time.Minute
	}
	if c.ReclaimEvery <= 0 {
		c.ReclaimEvery = time.Minute
	}
	if c.StatsEvery <= 0 {
		c.StatsEvery = 30 * time.Second
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = 30 * time.Second
	}
}

// Scheduler owns the cron entries for reclaim and stats ticks.
type Scheduler struct {
	store  core.Store
	events *events.Publisher
	cfg    Config

	cron     *cron.Cron
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Scheduler. Call Start to begin ticking.
func New(store core.Store, pub *events.Publisher, cfg Config) *Scheduler {
	cfg.applyDefaults()
	return &Scheduler{
		store:  store,
		events: pub,
		cfg:    cfg,
		cron:   cron.New(),
		stop:   make(chan struct{}),
	}
}

// Start registers the periodic jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(everySpec(s.cfg.ReclaimEvery), s.reclaimTick); err != nil {
		return fmt.Errorf("registering reclaim job: %w", err)
	}
	if _, err := s.cron.AddFunc(everySpec(s.cfg.StatsEvery), s.statsTick); err != nil {
		return fmt.Errorf("registering stats job: %w", err)
	}

	s.cron.Start()
	slog.Info("scheduler started",
		"reclaim_every", s.cfg.ReclaimEvery,
		"stats_every", s.cfg.StatsEvery,
		"lease_timeout", s.cfg.LeaseTimeout,
	)
	return nil
}

// Stop halts the cron runner. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		if s.cron != nil {
			ctx := s.cron.Stop()
			<-ctx.Done()
		}
		slog.Info("scheduler stopped")
	})
}

// reclaimTick sweeps expired leases back to their pending status.
func (s *Scheduler) reclaimTick() {
	ctx, cancel := s.tickContext()
	defer cancel()

	reclaimed, err := s.store.ReclaimStale(ctx, s.cfg.LeaseTimeout)
	if err != nil {
		slog.Error("reclaim sweep failed", "error", err)
		return
	}
	if reclaimed == 0 {
		return
	}

	metrics.LeasesReclaimed.Add(float64(reclaimed))
	s.events.Publish(events.TypeLeaseReclaimed, map[string]any{
		"count":   reclaimed,
		"timeout": s.cfg.LeaseTimeout.String(),
	})
	slog.Info("reclaimed stale leases", "count", reclaimed, "timeout", s.cfg.LeaseTimeout)
}

// statsTick refreshes the per-status gauges.
func (s *Scheduler) statsTick() {
	ctx, cancel := s.tickContext()
	defer cancel()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		slog.Error("stats refresh failed", "error", err)
		return
	}

	for _, status := range core.Statuses() {
		metrics.DevelopersByStatus.WithLabelValues(string(status)).Set(float64(stats.ByStatus[status]))
	}
}

func (s *Scheduler) tickContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.TickTimeout)
}

func everySpec(d time.Duration) string {
	return "@every " + d.String()
}
