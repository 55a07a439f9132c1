// ABOUTME: HTTP handlers for repository management under a product.
// ABOUTME: Listing filters by the caller's visible repository set.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
)

// repositoryBody is the JSON request body for POST and PATCH repository routes.
type repositoryBody struct {
	URL     string `json:"url"`
	VCSType string `json:"vcs_type"`
}

// repositoryResponseBody is the JSON response body for repository routes.
type repositoryResponseBody struct {
	RepositoryID int64  `json:"repository_id"`
	ProductID    int64  `json:"product_id"`
	URL          string `json:"url"`
	VCSType      string `json:"vcs_type"`
	CreatedAt    string `json:"created_at"`
}

func repositoryResponse(rp *store.Repository) repositoryResponseBody {
	return repositoryResponseBody{
		RepositoryID: rp.ID,
		ProductID:    rp.ProductID,
		URL:          rp.URL,
		VCSType:      rp.VCSType,
		CreatedAt:    rp.CreatedAt.Format(time.RFC3339),
	}
}

// listRepositoriesHandler handles GET /api/v1/products/{product_id}/repositories.
// Visibility is decided per repository, the same way listProductsHandler does
// it for products: no middleware, 404 when the product itself is not visible.
func (srv *Server) listRepositoriesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rawProduct := chi.URLParam(r, "product_id")
	productNum, err := strconv.ParseInt(rawProduct, 10, 64)
	if err != nil {
		http.Error(w, "invalid product_id", http.StatusBadRequest)
		return
	}
	productID, err := srv.authz.Resolve(r.Context(), authz.Ref{Level: hierarchy.LevelProduct, ID: productNum})
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve product", "id", productNum, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !productID.IsValid() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	perms, err := srv.authz.ResolvePermissions(r.Context(), userID,
		authz.RequireRepositoryPermissions(authz.RepoRead))
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve permissions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !perms.Has(productID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	scope := listScope(perms, hierarchy.LevelRepository, productID)
	repos, err := srv.store.ListRepositories(r.Context(), productID.Product(), scope)
	if err != nil {
		slog.ErrorContext(r.Context(), "list repositories", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]repositoryResponseBody, 0, len(repos))
	for i := range repos {
		out = append(out, repositoryResponse(&repos[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createRepositoryHandler handles POST /api/v1/products/{product_id}/repositories.
func (srv *Server) createRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req repositoryBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if req.VCSType == "" {
		req.VCSType = "git"
	}

	repo, err := srv.store.CreateRepository(r.Context(), id.Product(), req.URL, req.VCSType)
	if err != nil {
		slog.ErrorContext(r.Context(), "create repository", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, repositoryResponse(repo))
}

// getRepositoryHandler handles GET /api/v1/repositories/{repository_id}.
func (srv *Server) getRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	repo, err := srv.store.GetRepository(r.Context(), id.Repository())
	if err != nil {
		slog.ErrorContext(r.Context(), "get repository", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if repo == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, repositoryResponse(repo))
}

// updateRepositoryHandler handles PATCH /api/v1/repositories/{repository_id}.
func (srv *Server) updateRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req repositoryBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}
	if req.VCSType == "" {
		req.VCSType = "git"
	}

	repo, err := srv.store.UpdateRepository(r.Context(), id.Repository(), req.URL, req.VCSType)
	if err != nil {
		slog.ErrorContext(r.Context(), "update repository", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if repo == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, repositoryResponse(repo))
}

// deleteRepositoryHandler handles DELETE /api/v1/repositories/{repository_id}.
func (srv *Server) deleteRepositoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	deleted, err := srv.store.DeleteRepository(r.Context(), id.Repository())
	if err != nil {
		slog.ErrorContext(r.Context(), "delete repository", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
