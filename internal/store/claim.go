package store

import (
	"context"
	"fmt"
	"time"

	"github.com/levicap/github-scrapper/internal/core"
)

// claimSQL leases a batch in one atomic statement. FOR UPDATE SKIP LOCKED
// makes concurrent claims partition the pool: a row locked by another
// in-flight claim is skipped rather than waited on, and stays eligible for
// the next poll cycle. The surrounding UPDATE commits or rolls back as a
// whole, so a crash mid-claim claims either the full batch or nothing.
const claimSQL = `
	UPDATE developers
	SET enrichment_status = 'PROCESSING',
	    claimed_by = $1,
	    claimed_from = $2::enrichment_status,
	    processing_started_at = NOW()
	WHERE id IN (
	    SELECT id FROM developers
	    WHERE enrichment_status = $2::enrichment_status
	    ORDER BY id
	    LIMIT $3
	    FOR UPDATE SKIP LOCKED
	)
	RETURNING id, username, retry_count, processing_started_at`

// ClaimBatch implements core.Store.
func (s *Store) ClaimBatch(ctx context.Context, from core.Status, limit int, owner string) ([]core.Unit, error) {
	if limit <= 0 {
		return nil, core.NewInvalidRequestError("claim limit must be positive", map[string]any{
			"limit": limit,
		})
	}
	if owner == "" {
		return nil, core.NewInvalidRequestError("claim owner must not be empty", nil)
	}
	if !from.Claimable() {
		// Claiming from PROCESSING or a terminal state is a programming
		// error; succeeding silently would allow double-processing.
		return nil, core.NewConflictError(
			fmt.Sprintf("cannot claim from non-claimable status '%s'", from),
			map[string]any{"from_status": string(from)},
		)
	}

	rows, err := s.pool.Query(ctx, claimSQL, owner, string(from), limit)
	if err != nil {
		return nil, fmt.Errorf("claiming batch from %s: %w", from, err)
	}
	defer rows.Close()

	var units []core.Unit
	for rows.Next() {
		u := core.Unit{
			Status:      core.StatusProcessing,
			ClaimedBy:   owner,
			ClaimedFrom: from,
		}
		var startedAt time.Time
		if err := rows.Scan(&u.ID, &u.Username, &u.RetryCount, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning claimed row: %w", err)
		}
		u.ProcessingStartedAt = &startedAt
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading claimed rows: %w", err)
	}

	return units, nil
}

// reclaimSQL reverts expired leases to the state they were claimed out of.
// retry_count is deliberately untouched: the worker never reported an
// outcome, so this is recovery, not a processing failure.
const reclaimSQL = `
	UPDATE developers
	SET enrichment_status = claimed_from,
	    claimed_by = NULL,
	    claimed_from = NULL,
	    processing_started_at = NULL
	WHERE enrichment_status = 'PROCESSING'
	  AND claimed_from IS NOT NULL
	  AND processing_started_at < $1`

// ReclaimStale implements core.Store.
func (s *Store) ReclaimStale(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		return 0, core.NewInvalidRequestError("reclaim timeout must be positive", map[string]any{
			"timeout": timeout.String(),
		})
	}

	cutoff := time.Now().Add(-timeout)
	tag, err := s.pool.Exec(ctx, reclaimSQL, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reclaiming stale leases: %w", err)
	}
	return tag.RowsAffected(), nil
}
