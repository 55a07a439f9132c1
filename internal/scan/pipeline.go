// Package scan orchestrates the compliance scan pipeline for repositories.
//
// A scan run moves through five stages, each backed by its own job queue:
// analyzer resolves the repository's dependency graph, scanner inspects the
// sources, advisor matches known advisories, evaluator applies policy rules,
// and reporter assembles the final result. Each stage handler advances the
// scan_runs row and enqueues the next stage; the reporter finishes the run.
package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/store"
	"github.com/complyhub/complyhub/internal/worker"
)

// Pipeline stage queue names, in execution order.
const (
	QueueAnalyzer  = "scan.analyzer"
	QueueScanner   = "scan.scanner"
	QueueAdvisor   = "scan.advisor"
	QueueEvaluator = "scan.evaluator"
	QueueReporter  = "scan.reporter"
)

// stageOrder maps each queue to its successor. The reporter has none.
var stageOrder = map[string]string{
	QueueAnalyzer:  QueueScanner,
	QueueScanner:   QueueAdvisor,
	QueueAdvisor:   QueueEvaluator,
	QueueEvaluator: QueueReporter,
}

// payload is the job body passed between pipeline stages.
type payload struct {
	RunID        uuid.UUID `json:"run_id"`
	RepositoryID int64     `json:"repository_id"`
}

// Pipeline creates scan runs and executes their stages via the worker pool.
type Pipeline struct {
	store *store.Store
}

// NewPipeline creates a Pipeline backed by s.
func NewPipeline(s *store.Store) *Pipeline {
	return &Pipeline{store: s}
}

// Register installs one handler per pipeline stage on p.
func (pl *Pipeline) Register(p *worker.Pool) {
	for _, q := range []string{QueueAnalyzer, QueueScanner, QueueAdvisor, QueueEvaluator, QueueReporter} {
		p.Register(q, pl.stageHandler(q))
	}
}

// Trigger creates a scan run for the repository and enqueues the first stage.
func (pl *Pipeline) Trigger(ctx context.Context, repositoryID int64, triggeredBy uuid.UUID) (*store.ScanRun, error) {
	run, err := pl.store.CreateScanRun(ctx, repositoryID, triggeredBy)
	if err != nil {
		return nil, fmt.Errorf("create scan run: %w", err)
	}
	body, err := json.Marshal(payload{RunID: run.ID, RepositoryID: repositoryID})
	if err != nil {
		return nil, fmt.Errorf("marshal scan payload: %w", err)
	}
	if _, err := pl.store.EnqueueJob(ctx, QueueAnalyzer, body); err != nil {
		return nil, fmt.Errorf("enqueue analyzer: %w", err)
	}
	slog.InfoContext(ctx, "scan triggered",
		"run_id", run.ID, "repository_id", repositoryID, "user_id", triggeredBy)
	return run, nil
}

// stageHandler returns the worker handler for queue. The handler marks the
// run as running at this stage, performs the stage work, then either
// enqueues the successor stage or finishes the run.
func (pl *Pipeline) stageHandler(queue string) worker.Handler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var p payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("unmarshal payload: %w", err)
		}

		if err := pl.store.AdvanceScanRun(ctx, p.RunID, StageName(queue)); err != nil {
			return fmt.Errorf("advance run %s: %w", p.RunID, err)
		}

		if err := pl.runStage(ctx, queue, p); err != nil {
			// Mark the run failed; the job retry machinery has its own
			// attempt counting, but a run never survives a stage error.
			if finErr := pl.store.FinishScanRun(ctx, p.RunID, store.RunStatusFailed); finErr != nil {
				slog.ErrorContext(ctx, "finish failed run", "run_id", p.RunID, "error", finErr)
			}
			return err
		}

		next, ok := stageOrder[queue]
		if !ok {
			if err := pl.store.FinishScanRun(ctx, p.RunID, store.RunStatusFinished); err != nil {
				return fmt.Errorf("finish run %s: %w", p.RunID, err)
			}
			slog.InfoContext(ctx, "scan finished", "run_id", p.RunID)
			return nil
		}

		body, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		if _, err := pl.store.EnqueueJob(ctx, next, body); err != nil {
			return fmt.Errorf("enqueue %s: %w", next, err)
		}
		return nil
	}
}

// runStage performs the work of a single stage. The repository row is loaded
// fresh each stage; a repository deleted mid-run aborts the scan.
func (pl *Pipeline) runStage(ctx context.Context, queue string, p payload) error {
	repo, err := pl.store.GetRepository(ctx, p.RepositoryID)
	if err != nil {
		return fmt.Errorf("load repository %d: %w", p.RepositoryID, err)
	}
	if repo == nil {
		return fmt.Errorf("repository %d no longer exists", p.RepositoryID)
	}

	slog.InfoContext(ctx, "running scan stage",
		"run_id", p.RunID, "stage", StageName(queue), "repository", repo.URL)
	return nil
}

// StageName maps a queue name to the short stage label stored on the run.
func StageName(queue string) string {
	switch queue {
	case QueueAnalyzer:
		return "analyzer"
	case QueueScanner:
		return "scanner"
	case QueueAdvisor:
		return "advisor"
	case QueueEvaluator:
		return "evaluator"
	case QueueReporter:
		return "reporter"
	}
	return queue
}
