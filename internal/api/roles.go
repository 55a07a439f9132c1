// ABOUTME: HTTP handlers for role assignment on hierarchy elements.
// ABOUTME: Shared across levels — the middleware supplies the resolved element.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
)

// roleEntry describes one role a user holds in a listing response.
type roleEntry struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// userRolesBody is one element of the role listing response.
type userRolesBody struct {
	UserID string      `json:"user_id"`
	Roles  []roleEntry `json:"roles"`
}

// assignRoleBody is the JSON request body for PUT .../roles/{user_id}.
type assignRoleBody struct {
	Role string `json:"role"`
}

// effectivePermissionsBody is the JSON response for GET .../permissions.
type effectivePermissionsBody struct {
	Superuser    bool     `json:"superuser"`
	Organization []string `json:"organization"`
	Product      []string `json:"product"`
	Repository   []string `json:"repository"`
}

// effectivePermissionsHandler handles GET .../permissions on any hierarchy
// element: the caller's resolved permission sets at that element, for UI
// capability hints. The middleware already resolved the effective role.
func (srv *Server) effectivePermissionsHandler(w http.ResponseWriter, r *http.Request) {
	eff, ok := r.Context().Value(ctxEffectiveRole).(authz.EffectiveRole)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	body := effectivePermissionsBody{
		Superuser:    eff.Superuser,
		Organization: []string{},
		Product:      []string{},
		Repository:   []string{},
	}
	for _, p := range authz.AllOrganizationPermissions {
		if eff.HasOrganizationPermission(p) {
			body.Organization = append(body.Organization, string(p))
		}
	}
	for _, p := range authz.AllProductPermissions {
		if eff.HasProductPermission(p) {
			body.Product = append(body.Product, string(p))
		}
	}
	for _, p := range authz.AllRepositoryPermissions {
		if eff.HasRepositoryPermission(p) {
			body.Repository = append(body.Repository, string(p))
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// listRolesHandler handles GET .../roles on any hierarchy element. Without a
// query parameter it returns every user with a grant covering the element,
// including grants inherited from ancestors and the wildcard. With ?role=NAME
// it returns only users whose assignment on this exact element carries that
// role.
func (srv *Server) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if name := r.URL.Query().Get("role"); name != "" {
		role, ok := authz.RoleByName(id.Level(), name)
		if !ok {
			http.Error(w, "unknown role", http.StatusBadRequest)
			return
		}
		users, err := srv.authz.ListUsersWithRole(r.Context(), role, id)
		if err != nil {
			slog.ErrorContext(r.Context(), "list users with role", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]userRolesBody, 0, len(users))
		for _, u := range users {
			out = append(out, userRolesBody{
				UserID: u.String(),
				Roles:  []roleEntry{{Name: role.Name, Level: role.Level.String()}},
			})
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	users, err := srv.authz.ListUsers(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "list users", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]userRolesBody, 0, len(users))
	for userID, roles := range users {
		entry := userRolesBody{UserID: userID.String(), Roles: make([]roleEntry, 0, len(roles))}
		for _, role := range roles {
			entry.Roles = append(entry.Roles, roleEntry{Name: role.Name, Level: role.Level.String()})
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, out)
}

// assignRoleHandler handles PUT .../roles/{user_id}. Assigning replaces any
// existing assignment the user holds on this element.
func (srv *Server) assignRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	targetUser, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	var req assignRoleBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	role, ok := authz.RoleByName(id.Level(), req.Role)
	if !ok {
		http.Error(w, "unknown role", http.StatusBadRequest)
		return
	}

	if err := srv.authz.AssignRole(r.Context(), targetUser, role, id); err != nil {
		slog.ErrorContext(r.Context(), "assign role",
			"user_id", targetUser, "element", id, "role", role.Name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// removeRoleHandler handles DELETE .../roles/{user_id}.
func (srv *Server) removeRoleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	targetUser, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	removed, err := srv.authz.RemoveAssignment(r.Context(), targetUser, id)
	if err != nil {
		slog.ErrorContext(r.Context(), "remove assignment",
			"user_id", targetUser, "element", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !removed {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
