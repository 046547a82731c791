// Package worker runs the claim-process-commit loop for one pipeline stage.
//
// A worker owns no state of its own: it leases a batch from the store,
// runs the stage collaborator over each record, and commits exactly one
// outcome per record. Any number of workers may run the same stage
// concurrently; the store's claim semantics keep their batches disjoint.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/levicap/github-scrapper/internal/core"
	"github.com/levicap/github-scrapper/internal/events"
	"github.com/levicap/github-scrapper/internal/metrics"
)

// MaxContiguousErrors is the number of consecutive cycle failures after
// which Run gives up instead of hammering a broken store.
const MaxContiguousErrors = 10

// Collaborator produces the enrichment payload for one claimed record.
// A nil payload with a nil error is invalid; failures are reported through
// the error return and drive the retry accounting.
type Collaborator interface {
	Process(ctx context.Context, unit core.Unit) (*core.Enrichment, error)
}

// CollaboratorFunc adapts a function to the Collaborator interface.
type CollaboratorFunc func(ctx context.Context, unit core.Unit) (*core.Enrichment, error)

// Process implements Collaborator.
func (f CollaboratorFunc) Process(ctx context.Context, unit core.Unit) (*core.Enrichment, error) {
	return f(ctx, unit)
}

// Config controls one worker's loop.
type Config struct {
	// Stage selects which pipeline stage this worker runs.
	Stage core.Stage

	// BatchSize is the maximum number of records leased per cycle.
	BatchSize int

	// MaxRetries is the failure budget per record before it is marked FAILED.
	MaxRetries int

	// PollInterval is the idle wait between cycles when the pool is empty.
	PollInterval time.Duration

	// LeaseTimeout is the staleness cutoff used when this worker sweeps
	// expired leases before claiming.
	LeaseTimeout time.Duration

	// ReclaimBeforeClaim runs a stale-lease sweep at the start of each
	// cycle. Usually off; the scheduler owns the periodic sweep.
	ReclaimBeforeClaim bool

	// UnitDelay paces requests against the upstream API between records.
	UnitDelay time.Duration

	// Backoff delays records being retried, keyed by their retry count.
	Backoff core.BackoffPolicy
}

func (c *Config) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = 30 * time.Minute
	}
	if c.Backoff == (core.BackoffPolicy{}) {
		c.Backoff = core.DefaultBackoffPolicy()
	}
}

// Worker drives one stage of the pipeline against the store.
type Worker struct {
	store  core.Store
	collab Collaborator
	events *events.Publisher
	cfg    Config
	id     string

	contiguousErrors int

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a worker for the configured stage.
func New(store core.Store, collab Collaborator, pub *events.Publisher, cfg Config) (*Worker, error) {
	if store == nil {
		return nil, errors.New("worker requires a store")
	}
	if collab == nil {
		return nil, errors.New("worker requires a collaborator")
	}
	if err := cfg.Stage.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &Worker{
		store:  store,
		collab: collab,
		events: pub,
		cfg:    cfg,
		id:     core.NewWorkerID(),
		sleep:  sleepCtx,
	}, nil
}

// ID returns the worker's lease owner identity.
func (w *Worker) ID() string {
	return w.id
}

// Run executes claim cycles until ctx is cancelled or the store fails
// MaxContiguousErrors times in a row.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("worker starting",
		"worker_id", w.id,
		"stage", w.cfg.Stage.Name,
		"batch_size", w.cfg.BatchSize,
		"max_retries", w.cfg.MaxRetries,
	)
	w.contiguousErrors = 0

	for {
		processed, err := w.runCycle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.contiguousErrors++
			slog.Error("worker cycle failed",
				"worker_id", w.id,
				"error", err,
				"contiguous_errors", fmt.Sprintf("%d/%d", w.contiguousErrors, MaxContiguousErrors),
			)
			if w.contiguousErrors >= MaxContiguousErrors {
				return fmt.Errorf("worker failed %d cycles in a row; latest error: %w", w.contiguousErrors, err)
			}
		} else {
			w.contiguousErrors = 0
		}

		if processed == 0 {
			if err := w.sleep(ctx, w.cfg.PollInterval); err != nil {
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// runCycle leases one batch and commits an outcome for every record in it.
// Per-record collaborator failures are accounted against the record, not
// returned; only store-level failures surface as cycle errors.
func (w *Worker) runCycle(ctx context.Context) (int, error) {
	if w.cfg.ReclaimBeforeClaim {
		reclaimed, err := w.store.ReclaimStale(ctx, w.cfg.LeaseTimeout)
		if err != nil {
			return 0, fmt.Errorf("reclaiming stale leases: %w", err)
		}
		if reclaimed > 0 {
			metrics.LeasesReclaimed.Add(float64(reclaimed))
			slog.Info("reclaimed stale leases", "worker_id", w.id, "count", reclaimed)
		}
	}

	units, err := w.store.ClaimBatch(ctx, w.cfg.Stage.From, w.cfg.BatchSize, w.id)
	if err != nil {
		return 0, fmt.Errorf("claiming batch: %w", err)
	}
	if len(units) == 0 {
		return 0, nil
	}

	metrics.UnitsClaimed.WithLabelValues(string(w.cfg.Stage.From)).Add(float64(len(units)))
	w.events.Publish(events.TypeUnitClaimed, map[string]any{
		"worker_id": w.id,
		"stage":     w.cfg.Stage.Name,
		"count":     len(units),
	})
	slog.Info("claimed batch",
		"worker_id", w.id,
		"stage", w.cfg.Stage.Name,
		"count", len(units),
	)

	for i, unit := range units {
		if err := w.paceUnit(ctx, unit, i); err != nil {
			return i, err
		}
		if err := w.processUnit(ctx, unit); err != nil {
			return i, err
		}
	}
	return len(units), nil
}

// paceUnit waits out the retry backoff and the upstream pacing delay.
func (w *Worker) paceUnit(ctx context.Context, unit core.Unit, index int) error {
	if unit.RetryCount > 0 {
		delay := w.cfg.Backoff.Delay(unit.RetryCount)
		if delay > 0 {
			slog.Debug("delaying retried record",
				"worker_id", w.id,
				"username", unit.Username,
				"retry_count", unit.RetryCount,
				"delay", delay,
			)
			if err := w.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	if index > 0 && w.cfg.UnitDelay > 0 {
		if err := w.sleep(ctx, w.cfg.UnitDelay); err != nil {
			return err
		}
	}
	return nil
}

// processUnit runs the collaborator and commits exactly one outcome.
func (w *Worker) processUnit(ctx context.Context, unit core.Unit) error {
	enr, procErr := w.collab.Process(ctx, unit)
	if procErr == nil && enr == nil {
		procErr = errors.New("collaborator returned no payload")
	}

	if procErr != nil {
		if ctx.Err() != nil {
			// Shutdown mid-unit: leave the lease for the reclaimer.
			return ctx.Err()
		}
		return w.reportFailure(ctx, unit, procErr)
	}

	if err := w.store.CompleteStage(ctx, w.cfg.Stage, unit.Username, w.id, enr); err != nil {
		var coreErr *core.Error
		if errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeConflict {
			// Lost the lease, most likely to the reclaimer. Another worker
			// will pick the record up; nothing to commit here.
			slog.Warn("lease lost before commit",
				"worker_id", w.id,
				"username", unit.Username,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("committing %s for %s: %w", w.cfg.Stage.Name, unit.Username, err)
	}

	metrics.UnitsSucceeded.WithLabelValues(w.cfg.Stage.Name).Inc()
	w.events.Publish(w.successEventType(), map[string]any{
		"worker_id": w.id,
		"username":  unit.Username,
	})
	slog.Info("stage completed",
		"worker_id", w.id,
		"stage", w.cfg.Stage.Name,
		"username", unit.Username,
	)
	return nil
}

func (w *Worker) reportFailure(ctx context.Context, unit core.Unit, procErr error) error {
	status, err := w.store.ReportFailure(ctx, unit.Username, w.id, procErr.Error(), w.cfg.MaxRetries)
	if err != nil {
		var coreErr *core.Error
		if errors.As(err, &coreErr) && coreErr.Code == core.ErrCodeConflict {
			slog.Warn("lease lost before failure report",
				"worker_id", w.id,
				"username", unit.Username,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("reporting failure for %s: %w", unit.Username, err)
	}

	if status == core.StatusFailed {
		metrics.UnitsFailed.Inc()
		w.events.Publish(events.TypeUnitFailed, map[string]any{
			"worker_id": w.id,
			"username":  unit.Username,
			"error":     procErr.Error(),
		})
		slog.Error("record failed permanently",
			"worker_id", w.id,
			"stage", w.cfg.Stage.Name,
			"username", unit.Username,
			"error", procErr,
		)
		return nil
	}

	metrics.UnitsRetried.Inc()
	w.events.Publish(events.TypeUnitRetried, map[string]any{
		"worker_id": w.id,
		"username":  unit.Username,
		"error":     procErr.Error(),
	})
	slog.Warn("record scheduled for retry",
		"worker_id", w.id,
		"stage", w.cfg.Stage.Name,
		"username", unit.Username,
		"retry_count", unit.RetryCount+1,
		"error", procErr,
	)
	return nil
}

func (w *Worker) successEventType() string {
	if w.cfg.Stage.Done == core.StatusEnhanced {
		return events.TypeUnitEnhanced
	}
	return events.TypeUnitProfiled
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
