// ABOUTME: Tests for the hierarchy permission middleware over an in-memory
// ABOUTME: assignment store: inheritance, denial, and unknown-element handling.
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/config"
	"github.com/complyhub/complyhub/internal/hierarchy"
)

// fakeAssignments is an in-memory authz.AssignmentStore. Elements are
// registered up front so ResolveAncestors behaves like the real lookup.
type fakeAssignments struct {
	assignments []authz.UserAssignment
	elements    map[hierarchy.ID]struct{}
}

func newFakeAssignments(elements ...hierarchy.ID) *fakeAssignments {
	fs := &fakeAssignments{elements: make(map[hierarchy.ID]struct{})}
	for _, id := range elements {
		fs.elements[id] = struct{}{}
		for _, p := range id.Parents() {
			fs.elements[p] = struct{}{}
		}
	}
	return fs
}

func (f *fakeAssignments) LoadAssignments(_ context.Context, userID uuid.UUID, target hierarchy.ID) ([]authz.StoredAssignment, error) {
	applicable := map[hierarchy.ID]struct{}{target: {}, hierarchy.Wildcard: {}}
	for _, p := range target.Parents() {
		applicable[p] = struct{}{}
	}
	var out []authz.StoredAssignment
	for _, a := range f.assignments {
		if _, ok := applicable[a.ID]; ok && a.UserID == userID {
			out = append(out, a.StoredAssignment)
		}
	}
	return out, nil
}

func (f *fakeAssignments) LoadAllAssignments(_ context.Context, userID uuid.UUID) ([]authz.StoredAssignment, error) {
	var out []authz.StoredAssignment
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, a.StoredAssignment)
		}
	}
	return out, nil
}

func (f *fakeAssignments) InsertAssignment(_ context.Context, userID uuid.UUID, id hierarchy.ID, roleName string, roleLevel hierarchy.Level) error {
	f.assignments = append(f.assignments, authz.UserAssignment{
		UserID: userID,
		StoredAssignment: authz.StoredAssignment{
			ID: id, RoleName: roleName, RoleLevel: roleLevel,
		},
	})
	return nil
}

func (f *fakeAssignments) DeleteAssignment(_ context.Context, userID uuid.UUID, id hierarchy.ID) (bool, error) {
	for i, a := range f.assignments {
		if a.UserID == userID && a.ID == id {
			f.assignments = append(f.assignments[:i], f.assignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssignments) ResolveAncestors(_ context.Context, ref authz.Ref) (hierarchy.ID, error) {
	for id := range f.elements {
		if id.Level() != ref.Level {
			continue
		}
		switch ref.Level {
		case hierarchy.LevelOrganization:
			if id.Organization() == ref.ID {
				return id, nil
			}
		case hierarchy.LevelProduct:
			if id.Product() == ref.ID {
				return id, nil
			}
		case hierarchy.LevelRepository:
			if id.Repository() == ref.ID {
				return id, nil
			}
		}
	}
	return hierarchy.ID{}, nil
}

func (f *fakeAssignments) ListAssignmentsAt(_ context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
	var out []authz.UserAssignment
	for _, a := range f.assignments {
		if a.ID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignments) ListAssignmentsCovering(_ context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
	covering := map[hierarchy.ID]struct{}{id: {}, hierarchy.Wildcard: {}}
	for _, p := range id.Parents() {
		covering[p] = struct{}{}
	}
	var out []authz.UserAssignment
	for _, a := range f.assignments {
		if _, ok := covering[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// newTestServer builds a Server over fs with no database and no pipeline.
func newTestServer(fs *fakeAssignments) *Server {
	cfg := &config.Config{JWTSecret: "test-secret", RateLimitEvictTTL: time.Minute}
	return NewServer(nil, authz.NewService(fs), nil, cfg)
}

// doRepoRequest sends GET /repositories/{id} through the repository read
// middleware as userID, returning the response recorder.
func doRepoRequest(t *testing.T, srv *Server, userID uuid.UUID, repoID string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.With(srv.RequireRepositoryPermission(authz.RepoRead)).
		Get("/repositories/{repository_id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	req := httptest.NewRequest(http.MethodGet, "/repositories/"+repoID, nil)
	if userID != uuid.Nil {
		req = req.WithContext(context.WithValue(req.Context(), ctxUserID, userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequirePermission_DirectGrant(t *testing.T) {
	t.Parallel()
	repo := hierarchy.RepositoryID(1, 1, 1)
	fs := newFakeAssignments(repo)
	userID := uuid.New()
	fs.assignments = append(fs.assignments, authz.UserAssignment{
		UserID: userID,
		StoredAssignment: authz.StoredAssignment{
			ID: repo, RoleName: authz.RoleNameReader, RoleLevel: hierarchy.LevelRepository,
		},
	})

	rec := doRepoRequest(t, newTestServer(fs), userID, "1")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequirePermission_InheritedFromOrganization(t *testing.T) {
	t.Parallel()
	repo := hierarchy.RepositoryID(1, 1, 1)
	fs := newFakeAssignments(repo)
	userID := uuid.New()
	fs.assignments = append(fs.assignments, authz.UserAssignment{
		UserID: userID,
		StoredAssignment: authz.StoredAssignment{
			ID: hierarchy.OrganizationID(1), RoleName: authz.RoleNameReader, RoleLevel: hierarchy.LevelOrganization,
		},
	})

	rec := doRepoRequest(t, newTestServer(fs), userID, "1")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequirePermission_NoGrantForbidden(t *testing.T) {
	t.Parallel()
	repo := hierarchy.RepositoryID(1, 1, 1)
	fs := newFakeAssignments(repo)

	rec := doRepoRequest(t, newTestServer(fs), uuid.New(), "1")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRequirePermission_UnknownElementNotFound(t *testing.T) {
	t.Parallel()
	fs := newFakeAssignments(hierarchy.RepositoryID(1, 1, 1))

	rec := doRepoRequest(t, newTestServer(fs), uuid.New(), "99")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestRequirePermission_InvalidParam(t *testing.T) {
	t.Parallel()
	fs := newFakeAssignments(hierarchy.RepositoryID(1, 1, 1))

	rec := doRepoRequest(t, newTestServer(fs), uuid.New(), "abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequirePermission_Unauthenticated(t *testing.T) {
	t.Parallel()
	fs := newFakeAssignments(hierarchy.RepositoryID(1, 1, 1))

	rec := doRepoRequest(t, newTestServer(fs), uuid.Nil, "1")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequirePermission_SuperuserAlwaysAllowed(t *testing.T) {
	t.Parallel()
	repo := hierarchy.RepositoryID(1, 1, 1)
	fs := newFakeAssignments(repo)
	userID := uuid.New()
	fs.assignments = append(fs.assignments, authz.UserAssignment{
		UserID: userID,
		StoredAssignment: authz.StoredAssignment{
			ID: hierarchy.Wildcard, RoleName: authz.RoleNameAdmin, RoleLevel: hierarchy.LevelOrganization,
		},
	})

	rec := doRepoRequest(t, newTestServer(fs), userID, "1")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
