// ABOUTME: Store methods for scan runs — one row per triggered compliance scan.
// ABOUTME: Runs advance through the worker pipeline stages until finished/failed.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Scan run statuses.
const (
	RunStatusCreated  = "created"
	RunStatusRunning  = "running"
	RunStatusFinished = "finished"
	RunStatusFailed   = "failed"
)

// ScanRun is one triggered compliance scan of a repository.
type ScanRun struct {
	ID           uuid.UUID
	RepositoryID int64
	Status       string
	Stage        string // current pipeline stage while running, last stage otherwise
	TriggeredBy  uuid.UUID
	CreatedAt    time.Time
	FinishedAt   sql.NullTime
}

const runColumns = "id, repository_id, status, stage, triggered_by, created_at, finished_at"

// CreateScanRun inserts a new run in 'created' status and returns it.
func (s *Store) CreateScanRun(ctx context.Context, repositoryID int64, triggeredBy uuid.UUID) (*ScanRun, error) {
	var r ScanRun
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO scan_runs (id, repository_id, status, stage, triggered_by)
		VALUES ($1, $2, $3, '', $4)
		RETURNING `+runColumns, uuid.New(), repositoryID, RunStatusCreated, triggeredBy).
		Scan(&r.ID, &r.RepositoryID, &r.Status, &r.Stage, &r.TriggeredBy, &r.CreatedAt, &r.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("create scan run: %w", err)
	}
	return &r, nil
}

// GetScanRun returns the run with the given id, or (nil, nil) if not found.
func (s *Store) GetScanRun(ctx context.Context, id uuid.UUID) (*ScanRun, error) {
	var r ScanRun
	err := s.db.QueryRowContext(ctx,
		"SELECT "+runColumns+" FROM scan_runs WHERE id = $1", id).
		Scan(&r.ID, &r.RepositoryID, &r.Status, &r.Stage, &r.TriggeredBy, &r.CreatedAt, &r.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scan run: %w", err)
	}
	return &r, nil
}

// ListScanRuns returns the runs of repositoryID, newest first, capped at limit.
func (s *Store) ListScanRuns(ctx context.Context, repositoryID int64, limit int) ([]ScanRun, error) {
	sb := psql.Select(runColumns).From("scan_runs").
		Where(sq.Eq{"repository_id": repositoryID}).
		OrderBy("created_at DESC, id DESC").
		Limit(uint64(limit)) //nolint:gosec // G115: limit validated by caller

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list scan runs: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []ScanRun
	for rows.Next() {
		var r ScanRun
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.Status, &r.Stage, &r.TriggeredBy, &r.CreatedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("list scan runs: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AdvanceScanRun records that the run entered stage and is running.
func (s *Store) AdvanceScanRun(ctx context.Context, id uuid.UUID, stage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = $2, stage = $3 WHERE id = $1`,
		id, RunStatusRunning, stage)
	if err != nil {
		return fmt.Errorf("advance scan run %s: %w", id, err)
	}
	return nil
}

// FinishScanRun records the terminal status of a run.
func (s *Store) FinishScanRun(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scan_runs SET status = $2, finished_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("finish scan run %s: %w", id, err)
	}
	return nil
}
