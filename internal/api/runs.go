// ABOUTME: HTTP handlers for triggering scans and reading scan run state.
// ABOUTME: Scan routes live under the repository they target.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
)

// runResponseBody is the JSON response body for scan run routes.
type runResponseBody struct {
	RunID        string `json:"run_id"`
	RepositoryID int64  `json:"repository_id"`
	Status       string `json:"status"`
	Stage        string `json:"stage,omitempty"`
	TriggeredBy  string `json:"triggered_by"`
	CreatedAt    string `json:"created_at"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

func runResponse(run *store.ScanRun) runResponseBody {
	body := runResponseBody{
		RunID:        run.ID.String(),
		RepositoryID: run.RepositoryID,
		Status:       run.Status,
		Stage:        run.Stage,
		TriggeredBy:  run.TriggeredBy.String(),
		CreatedAt:    run.CreatedAt.Format(time.RFC3339),
	}
	if run.FinishedAt.Valid {
		body.FinishedAt = run.FinishedAt.Time.Format(time.RFC3339)
	}
	return body
}

// triggerScanHandler handles POST /api/v1/repositories/{repository_id}/scans.
// Creates a scan run and enqueues the first pipeline stage.
func (srv *Server) triggerScanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	run, err := srv.pipeline.Trigger(r.Context(), id.Repository(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "trigger scan", "repository", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, runResponse(run))
}

// listScansHandler handles GET /api/v1/repositories/{repository_id}/scans.
// Returns the most recent runs for the repository.
func (srv *Server) listScansHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	runs, err := srv.store.ListScanRuns(r.Context(), id.Repository(), 50)
	if err != nil {
		slog.ErrorContext(r.Context(), "list scan runs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]runResponseBody, 0, len(runs))
	for i := range runs {
		out = append(out, runResponse(&runs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// getScanHandler handles GET /api/v1/repositories/{repository_id}/scans/{run_id}.
// A run belonging to a different repository is reported as not found.
func (srv *Server) getScanHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		http.Error(w, "invalid run_id", http.StatusBadRequest)
		return
	}

	run, err := srv.store.GetScanRun(r.Context(), runID)
	if err != nil {
		slog.ErrorContext(r.Context(), "get scan run", "run_id", runID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if run == nil || run.RepositoryID != id.Repository() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, runResponse(run))
}
