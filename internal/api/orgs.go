// ABOUTME: HTTP handlers for organization management: list, create, read,
// ABOUTME: update, delete. Creation is reserved for superusers.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
)

// orgBody is the JSON request body for POST and PATCH organization routes.
type orgBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// orgResponseBody is the JSON response body for organization routes.
type orgResponseBody struct {
	OrgID       int64  `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func orgResponse(o *store.Organization) orgResponseBody {
	return orgResponseBody{
		OrgID:       o.ID,
		Name:        o.Name,
		Description: o.Description,
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON: encode failed", "error", err)
	}
}

// listOrgsHandler handles GET /api/v1/orgs.
// Returns the organizations the caller can see: those with a read grant plus
// those kept visible because the caller holds a grant somewhere below them.
func (srv *Server) listOrgsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	perms, err := srv.authz.ResolvePermissions(r.Context(), userID,
		authz.RequireOrganizationPermissions(authz.OrgRead))
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve permissions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	scope := listScope(perms, hierarchy.LevelOrganization, hierarchy.ID{})
	orgs, err := srv.store.ListOrganizations(r.Context(), scope)
	if err != nil {
		slog.ErrorContext(r.Context(), "list orgs", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]orgResponseBody, 0, len(orgs))
	for i := range orgs {
		out = append(out, orgResponse(&orgs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createOrgHandler handles POST /api/v1/orgs. Only superusers may create
// top-level organizations.
func (srv *Server) createOrgHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	super, err := srv.authz.IsSuperuser(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "superuser check", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !super {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var req orgBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := srv.store.CreateOrganization(r.Context(), req.Name, req.Description)
	if err != nil {
		slog.ErrorContext(r.Context(), "create org", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, orgResponse(org))
}

// getOrgHandler handles GET /api/v1/orgs/{org_id}.
func (srv *Server) getOrgHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	org, err := srv.store.GetOrganization(r.Context(), id.Organization())
	if err != nil {
		slog.ErrorContext(r.Context(), "get org", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if org == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse(org))
}

// updateOrgHandler handles PATCH /api/v1/orgs/{org_id}.
func (srv *Server) updateOrgHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req orgBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := srv.store.UpdateOrganization(r.Context(), id.Organization(), req.Name, req.Description)
	if err != nil {
		slog.ErrorContext(r.Context(), "update org", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if org == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, orgResponse(org))
}

// deleteOrgHandler handles DELETE /api/v1/orgs/{org_id}.
// Cascades to products, repositories, and role assignments.
func (srv *Server) deleteOrgHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	deleted, err := srv.store.DeleteOrganization(r.Context(), id.Organization())
	if err != nil {
		slog.ErrorContext(r.Context(), "delete org", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
