// ABOUTME: Store methods for the job queue the scan worker pool polls.
// ABOUTME: Claims use FOR UPDATE SKIP LOCKED so workers never contend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Job is a claimed job ready for execution by the worker pool.
type Job struct {
	ID       uuid.UUID
	Queue    string
	Payload  json.RawMessage
	Attempts int32
}

// EnqueueJob inserts a new job into the named queue and returns its ID.
func (s *Store) EnqueueJob(ctx context.Context, queue string, payload json.RawMessage) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_queue (id, queue, payload, status)
		VALUES ($1, $2, $3, 'pending')`, id, queue, payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// ClaimJob atomically claims one pending job from the named queue for the
// given workerID. Returns (nil, nil) when no job is currently available.
func (s *Store) ClaimJob(ctx context.Context, queue, workerID string) (*Job, error) {
	var job Job
	err := s.pool.QueryRow(ctx, `
		UPDATE job_queue SET status = 'running', locked_by = $2, locked_at = now(),
			attempts = attempts + 1
		WHERE id = (
			SELECT id FROM job_queue
			WHERE queue = $1 AND status = 'pending' AND run_after <= now()
			ORDER BY created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, queue, payload, attempts`, queue, workerID).
		Scan(&job.ID, &job.Queue, &job.Payload, &job.Attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return &job, nil
}

// CompleteJob marks a job as succeeded.
func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET status = 'done', locked_by = NULL, locked_at = NULL
		WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// FailJob marks a job as failed, scheduling a linear-backoff retry or moving
// it to 'dead' once max_attempts is exhausted.
func (s *Store) FailJob(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET
			status = CASE WHEN attempts >= max_attempts THEN 'dead' ELSE 'pending' END,
			run_after = now() + (attempts * interval '30 seconds'),
			last_error = $2,
			locked_by = NULL, locked_at = NULL
		WHERE id = $1`, id, errMsg)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return nil
}

// RecoverStaleJobs resets jobs stuck in 'running' state longer than
// staleAfter back to 'pending'. Returns the number of jobs recovered.
func (s *Store) RecoverStaleJobs(ctx context.Context, staleAfter time.Duration) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE job_queue SET status = 'pending', locked_by = NULL, locked_at = NULL
		WHERE status = 'running' AND locked_at < now() - $1 * interval '1 second'`,
		int64(staleAfter.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	return int(n), nil
}
