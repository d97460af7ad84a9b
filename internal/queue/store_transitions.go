package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotClaimable marks a claim attempt against a job that is not in a
// claimable state.
var ErrNotClaimable = errors.New("job is not claimable")

// Claim atomically transitions a pending or failed job to processing. Exactly
// one concurrent caller wins; losers receive ErrNotClaimable. A missing job
// returns (nil, nil) so callers can retry against delivery races.
func (s *Store) Claim(ctx context.Context, id string) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = NULL, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		StatusProcessing,
		now,
		now,
		id,
		StatusPending,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return s.GetByID(ctx, id)
	}

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	return nil, fmt.Errorf("%w: job %s is %s", ErrNotClaimable, id, job.Status)
}

// RetryFailed resets a failed job to pending so it can be enqueued again.
func (s *Store) RetryFailed(ctx context.Context, id string) (*Job, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending,
		now,
		id,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		job, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if job == nil {
			return nil, fmt.Errorf("job %s not found", id)
		}
		return nil, fmt.Errorf("job %s is %s, only failed jobs can be retried", id, job.Status)
	}
	return s.GetByID(ctx, id)
}

// UpdateHeartbeat records worker liveness for a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReclaimStaleProcessing resets processing jobs whose heartbeat predates the
// cutoff back to pending. Returns the identifiers of reclaimed jobs.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) ([]string, error) {
	cutoffStr := cutoff.UTC().Format(time.RFC3339Nano)

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM jobs
         WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusProcessing,
		cutoffStr,
	)
	if err != nil {
		return nil, fmt.Errorf("find stale jobs: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		stale = append(stale, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var reclaimed []string
	for _, id := range stale {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, last_heartbeat = NULL, updated_at = ?
             WHERE id = ? AND status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
			StatusPending,
			now,
			id,
			StatusProcessing,
			cutoffStr,
		)
		if err != nil {
			return reclaimed, fmt.Errorf("reclaim job %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return reclaimed, err
		}
		if affected == 1 {
			reclaimed = append(reclaimed, id)
		}
	}
	return reclaimed, nil
}
