package core

import (
	"context"
	"time"
)

// Store is the work-record store contract. It is the single owner of every
// status and lease mutation: the worker loop, the reclaim scheduler and the
// ops API all go through it and never write status directly.
//
// Implemented by the Postgres store in internal/store; tests substitute a
// mock.
type Store interface {
	// ClaimBatch atomically leases up to limit records currently in the
	// claimable status from, skipping rows locked by concurrent claims, and
	// returns the claimed units. Concurrent claims over the same pool
	// partition it: the returned sets are disjoint and rows skipped because
	// another claim held their lock stay eligible for the next poll. An
	// empty result is not an error. Claiming from a non-claimable status is
	// rejected with a conflict error.
	ClaimBatch(ctx context.Context, from Status, limit int, owner string) ([]Unit, error)

	// ReclaimStale reverts PROCESSING records whose lease started before
	// now-timeout back to their originating pending state, clearing lease
	// fields and leaving retry_count untouched. Returns the number of
	// records reclaimed; idempotent when nothing is stale.
	ReclaimStale(ctx context.Context, timeout time.Duration) (int64, error)

	// CompleteStage commits a successful outcome for a unit the caller
	// holds: writes the stage's enrichment payload, advances status to
	// stage.Done, records the stage timestamp and clears the lease. Fails
	// with a conflict error if the unit is not PROCESSING under owner.
	CompleteStage(ctx context.Context, stage Stage, username, owner string, enr *Enrichment) error

	// ReportFailure commits a failed outcome for a unit the caller holds:
	// increments retry_count and either returns the unit to its originating
	// pending state (retry_count < maxRetries) or marks it FAILED. Either
	// way last_error is set and the lease cleared. Returns the resulting
	// status. Fails with a conflict error if the unit is not PROCESSING
	// under owner.
	ReportFailure(ctx context.Context, username, owner, message string, maxRetries int) (Status, error)

	// SeedUsernames inserts usernames in INITIAL status, ignoring ones that
	// already exist. Returns the number actually inserted.
	SeedUsernames(ctx context.Context, usernames []string) (int64, error)

	// GetDeveloper returns a record with its enrichment payload.
	GetDeveloper(ctx context.Context, username string) (*Developer, error)

	// CountByStatus returns the number of records in a status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// ListFailed pages through terminally failed records, most recent first,
	// for inspection of last_error.
	ListFailed(ctx context.Context, limit, offset int) ([]Unit, error)

	// Stats summarizes the table for the ops API and the metrics gauges.
	Stats(ctx context.Context) (*Stats, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error
}
