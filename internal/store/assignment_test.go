// ABOUTME: Integration tests for store/assignment.go — role assignment rows.
// ABOUTME: Uses testutil.NewTestDB; each test runs in its own container (t.Parallel).
package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
	"github.com/complyhub/complyhub/internal/testutil"
)

// seedHierarchy creates one org > product > repository chain and returns the
// three hierarchy ids.
func seedHierarchy(t *testing.T, s *store.Store) (hierarchy.ID, hierarchy.ID, hierarchy.ID) {
	t.Helper()
	ctx := context.Background()

	org, err := s.CreateOrganization(ctx, "Acme", "")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	product, err := s.CreateProduct(ctx, org.ID, "Widget", "")
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	repo, err := s.CreateRepository(ctx, product.ID, "https://git.example.com/widget.git", "git")
	if err != nil {
		t.Fatalf("CreateRepository: %v", err)
	}

	repoID, err := hierarchy.New(org.ID, product.ID, repo.ID)
	if err != nil {
		t.Fatalf("hierarchy.New: %v", err)
	}
	productID, _ := repoID.Parent()
	orgID, _ := productID.Parent()
	return orgID, productID, repoID
}

func TestInsertAssignment_ReplacesExisting(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, _, _ := seedHierarchy(t, s)
	userID := uuid.New()

	if err := s.InsertAssignment(ctx, userID, orgID, authz.RoleNameReader, hierarchy.LevelOrganization); err != nil {
		t.Fatalf("InsertAssignment(reader): %v", err)
	}
	// Assigning again on the same element replaces, never accumulates.
	if err := s.InsertAssignment(ctx, userID, orgID, authz.RoleNameAdmin, hierarchy.LevelOrganization); err != nil {
		t.Fatalf("InsertAssignment(admin): %v", err)
	}

	rows, err := s.LoadAllAssignments(ctx, userID)
	if err != nil {
		t.Fatalf("LoadAllAssignments: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d assignments, want 1", len(rows))
	}
	if rows[0].RoleName != authz.RoleNameAdmin {
		t.Errorf("RoleName = %q, want %q", rows[0].RoleName, authz.RoleNameAdmin)
	}
	if rows[0].ID != orgID {
		t.Errorf("ID = %v, want %v", rows[0].ID, orgID)
	}
}

func TestLoadAssignments_CoveringSetOnly(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, productID, repoID := seedHierarchy(t, s)
	userID := uuid.New()

	// A second org the target does not descend from.
	other, err := s.CreateOrganization(ctx, "Other", "")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	otherID := hierarchy.OrganizationID(other.ID)

	for _, id := range []hierarchy.ID{hierarchy.Wildcard, orgID, productID, repoID, otherID} {
		if err := s.InsertAssignment(ctx, userID, id, authz.RoleNameReader, id.Level()); err != nil {
			t.Fatalf("InsertAssignment(%v): %v", id, err)
		}
	}

	rows, err := s.LoadAssignments(ctx, userID, repoID)
	if err != nil {
		t.Fatalf("LoadAssignments: %v", err)
	}
	// Wildcard, org, product, and the repo itself — never the sibling org.
	if len(rows) != 4 {
		t.Fatalf("got %d assignments, want 4", len(rows))
	}
	for _, row := range rows {
		if row.ID == otherID {
			t.Errorf("sibling org assignment leaked into covering set")
		}
	}
}

func TestDeleteAssignment(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, _, _ := seedHierarchy(t, s)
	userID := uuid.New()

	if err := s.InsertAssignment(ctx, userID, orgID, authz.RoleNameWriter, hierarchy.LevelOrganization); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	removed, err := s.DeleteAssignment(ctx, userID, orgID)
	if err != nil {
		t.Fatalf("DeleteAssignment: %v", err)
	}
	if !removed {
		t.Error("DeleteAssignment = false, want true")
	}

	removed, err = s.DeleteAssignment(ctx, userID, orgID)
	if err != nil {
		t.Fatalf("DeleteAssignment(again): %v", err)
	}
	if removed {
		t.Error("second DeleteAssignment = true, want false")
	}
}

func TestResolveAncestors(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, productID, repoID := seedHierarchy(t, s)

	got, err := s.ResolveAncestors(ctx, authz.Ref{Level: hierarchy.LevelRepository, ID: repoID.Repository()})
	if err != nil {
		t.Fatalf("ResolveAncestors(repo): %v", err)
	}
	if got != repoID {
		t.Errorf("repo = %v, want %v", got, repoID)
	}

	got, err = s.ResolveAncestors(ctx, authz.Ref{Level: hierarchy.LevelProduct, ID: productID.Product()})
	if err != nil {
		t.Fatalf("ResolveAncestors(product): %v", err)
	}
	if got != productID {
		t.Errorf("product = %v, want %v", got, productID)
	}

	got, err = s.ResolveAncestors(ctx, authz.Ref{Level: hierarchy.LevelOrganization, ID: orgID.Organization()})
	if err != nil {
		t.Fatalf("ResolveAncestors(org): %v", err)
	}
	if got != orgID {
		t.Errorf("org = %v, want %v", got, orgID)
	}

	// Unknown element resolves to the zero value without error — callers
	// treat that as not found.
	got, err = s.ResolveAncestors(ctx, authz.Ref{Level: hierarchy.LevelRepository, ID: 99999})
	if err != nil {
		t.Fatalf("ResolveAncestors(missing): %v", err)
	}
	if got.IsValid() {
		t.Errorf("missing repo resolved to %v, want zero", got)
	}
}

func TestListAssignmentsCovering(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, _, repoID := seedHierarchy(t, s)

	orgUser, repoUser := uuid.New(), uuid.New()
	if err := s.InsertAssignment(ctx, orgUser, orgID, authz.RoleNameAdmin, hierarchy.LevelOrganization); err != nil {
		t.Fatalf("InsertAssignment(org): %v", err)
	}
	if err := s.InsertAssignment(ctx, repoUser, repoID, authz.RoleNameReader, hierarchy.LevelRepository); err != nil {
		t.Fatalf("InsertAssignment(repo): %v", err)
	}

	// Covering the repo: both users apply.
	rows, err := s.ListAssignmentsCovering(ctx, repoID)
	if err != nil {
		t.Fatalf("ListAssignmentsCovering(repo): %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("covering repo: got %d rows, want 2", len(rows))
	}

	// Covering the org: only the org-level assignment applies.
	rows, err = s.ListAssignmentsCovering(ctx, orgID)
	if err != nil {
		t.Fatalf("ListAssignmentsCovering(org): %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("covering org: got %d rows, want 1", len(rows))
	}
	if rows[0].UserID != orgUser {
		t.Errorf("covering org user = %v, want %v", rows[0].UserID, orgUser)
	}
}

func TestDeleteOrganizationCascadesAssignments(t *testing.T) {
	t.Parallel()
	s := testutil.NewTestDB(t)
	ctx := context.Background()
	orgID, _, repoID := seedHierarchy(t, s)
	userID := uuid.New()

	if err := s.InsertAssignment(ctx, userID, repoID, authz.RoleNameWriter, hierarchy.LevelRepository); err != nil {
		t.Fatalf("InsertAssignment: %v", err)
	}

	deleted, err := s.DeleteOrganization(ctx, orgID.Organization())
	if err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}
	if !deleted {
		t.Fatal("DeleteOrganization = false, want true")
	}

	rows, err := s.LoadAllAssignments(ctx, userID)
	if err != nil {
		t.Fatalf("LoadAllAssignments: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d assignments after cascade, want 0", len(rows))
	}
}
