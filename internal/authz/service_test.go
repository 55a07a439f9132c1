// ABOUTME: Unit tests for the authorization service over an in-memory store.
// ABOUTME: Covers fail-closed resolution, corrupt encodings, and round trips.
package authz_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
)

// fakeStore is an in-memory AssignmentStore. Elements are registered up front
// so ResolveAncestors behaves like the real parent-chain lookup.
type fakeStore struct {
	assignments []authz.UserAssignment
	elements    map[hierarchy.ID]struct{}
}

func newFakeStore(elements ...hierarchy.ID) *fakeStore {
	fs := &fakeStore{elements: make(map[hierarchy.ID]struct{})}
	for _, id := range elements {
		fs.elements[id] = struct{}{}
		for _, p := range id.Parents() {
			fs.elements[p] = struct{}{}
		}
	}
	return fs
}

func (f *fakeStore) LoadAssignments(_ context.Context, userID uuid.UUID, target hierarchy.ID) ([]authz.StoredAssignment, error) {
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

func (f *fakeStore) LoadAllAssignments(_ context.Context, userID uuid.UUID) ([]authz.StoredAssignment, error) {
	var out []authz.StoredAssignment
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, a.StoredAssignment)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID, roleName string, roleLevel hierarchy.Level) error {
	_, _ = f.DeleteAssignment(ctx, userID, id)
	f.assignments = append(f.assignments, authz.UserAssignment{
		UserID: userID,
		StoredAssignment: authz.StoredAssignment{
			ID: id, RoleName: roleName, RoleLevel: roleLevel,
		},
	})
	return nil
}

func (f *fakeStore) DeleteAssignment(_ context.Context, userID uuid.UUID, id hierarchy.ID) (bool, error) {
	for i, a := range f.assignments {
		if a.UserID == userID && a.ID == id {
			f.assignments = append(f.assignments[:i], f.assignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ResolveAncestors(_ context.Context, ref authz.Ref) (hierarchy.ID, error) {
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

func (f *fakeStore) ListAssignmentsAt(_ context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
	var out []authz.UserAssignment
	for _, a := range f.assignments {
		if a.ID == id {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAssignmentsCovering(_ context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
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

func TestService_CheckPermission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFakeStore(repo1)
	svc := authz.NewService(fs)
	user := uuid.New()

	if err := svc.AssignRole(ctx, user, authz.ProductWriter, product1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	e, err := svc.CheckPermission(ctx, user, repo1, authz.RequireRepositoryPermissions(authz.RepoTriggerScan))
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if e == nil {
		t.Fatal("product writer must pass a repository TRIGGER_SCAN check")
	}

	denied, err := svc.CheckPermission(ctx, user, repo1, authz.RequireRepositoryPermissions(authz.RepoDelete))
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if denied != nil {
		t.Error("product writer must fail a repository DELETE check")
	}
}

func TestService_GetEffectiveRole_InvalidTargetFailsClosed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := authz.NewService(newFakeStore(repo1))
	user := uuid.New()

	var invalid hierarchy.ID
	e, err := svc.GetEffectiveRole(ctx, user, invalid)
	if err != nil {
		t.Fatalf("GetEffectiveRole: %v", err)
	}
	if e.Superuser || e.HasRepositoryPermission(authz.RepoRead) {
		t.Error("unresolvable target must yield the empty, non-superuser result")
	}

	denied, err := svc.CheckPermission(ctx, user, invalid, authz.RequireRepositoryPermissions(authz.RepoRead))
	if err != nil {
		t.Fatalf("CheckPermission: %v", err)
	}
	if denied != nil {
		t.Error("unresolvable target must deny, not error")
	}
}

func TestService_CorruptRoleEncodingGrantsNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFakeStore(repo1)
	user := uuid.New()
	fs.assignments = append(fs.assignments,
		authz.UserAssignment{
			UserID: user,
			StoredAssignment: authz.StoredAssignment{
				ID: org1, RoleName: "archduke", RoleLevel: hierarchy.LevelOrganization,
			},
		},
		authz.UserAssignment{
			UserID: user,
			StoredAssignment: authz.StoredAssignment{
				ID: repo1, RoleName: authz.RoleNameReader, RoleLevel: hierarchy.LevelRepository,
			},
		},
	)
	svc := authz.NewService(fs)

	// The corrupt row grants nothing but must not poison the valid one.
	e, err := svc.GetEffectiveRole(ctx, user, repo1)
	if err != nil {
		t.Fatalf("GetEffectiveRole: %v", err)
	}
	if e.HasOrganizationPermission(authz.OrgWrite) {
		t.Error("corrupt encoding must grant nothing")
	}
	if !e.HasRepositoryPermission(authz.RepoRead) {
		t.Error("valid assignment alongside a corrupt row must still apply")
	}
}

func TestService_AssignReplaceRemoveRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFakeStore(repo1)
	svc := authz.NewService(fs)
	user := uuid.New()

	before, err := svc.GetEffectiveRole(ctx, user, repo1)
	if err != nil {
		t.Fatalf("GetEffectiveRole: %v", err)
	}

	if err := svc.AssignRole(ctx, user, authz.RepositoryReader, repo1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	// Replace-on-assign: the second grant overwrites, never merges.
	if err := svc.AssignRole(ctx, user, authz.RepositoryWriter, repo1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	users, err := svc.ListUsersWithRole(ctx, authz.RepositoryReader, repo1)
	if err != nil {
		t.Fatalf("ListUsersWithRole: %v", err)
	}
	if len(users) != 0 {
		t.Error("reader assignment must have been replaced by writer")
	}

	removed, err := svc.RemoveAssignment(ctx, user, repo1)
	if err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if !removed {
		t.Error("RemoveAssignment = false, want true")
	}

	after, err := svc.GetEffectiveRole(ctx, user, repo1)
	if err != nil {
		t.Fatalf("GetEffectiveRole: %v", err)
	}
	if after.HasRepositoryPermission(authz.RepoWrite) != before.HasRepositoryPermission(authz.RepoWrite) {
		t.Error("assign+remove must restore the prior permission state")
	}

	removedAgain, err := svc.RemoveAssignment(ctx, user, repo1)
	if err != nil {
		t.Fatalf("RemoveAssignment: %v", err)
	}
	if removedAgain {
		t.Error("removing a non-existing assignment must report false")
	}
}

func TestService_ListUsersIncludesInherited(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFakeStore(repo1)
	svc := authz.NewService(fs)
	orgAdmin := uuid.New()
	repoReader := uuid.New()
	outsider := uuid.New()

	if err := svc.AssignRole(ctx, orgAdmin, authz.OrganizationAdmin, org1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := svc.AssignRole(ctx, repoReader, authz.RepositoryReader, repo1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := svc.AssignRole(ctx, outsider, authz.OrganizationAdmin, hierarchy.OrganizationID(2)); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	users, err := svc.ListUsers(ctx, repo1)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if _, ok := users[orgAdmin]; !ok {
		t.Error("ListUsers must include users inheriting access from ancestors")
	}
	if _, ok := users[repoReader]; !ok {
		t.Error("ListUsers must include direct assignees")
	}
	if _, ok := users[outsider]; ok {
		t.Error("ListUsers must not include users from unrelated branches")
	}

	// ListUsersWithRole is explicit-only: the org admin does not appear for
	// a repository-level role query.
	direct, err := svc.ListUsersWithRole(ctx, authz.RepositoryReader, repo1)
	if err != nil {
		t.Fatalf("ListUsersWithRole: %v", err)
	}
	if len(direct) != 1 || direct[0] != repoReader {
		t.Errorf("ListUsersWithRole = %v, want [repoReader]", direct)
	}
}

func TestService_IsSuperuser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fs := newFakeStore(repo1)
	svc := authz.NewService(fs)
	root := uuid.New()
	mortal := uuid.New()

	if err := svc.AssignRole(ctx, root, authz.OrganizationAdmin, hierarchy.Wildcard); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	if err := svc.AssignRole(ctx, mortal, authz.OrganizationAdmin, org1); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}

	if ok, err := svc.IsSuperuser(ctx, root); err != nil || !ok {
		t.Errorf("IsSuperuser(root) = %v, %v, want true", ok, err)
	}
	if ok, err := svc.IsSuperuser(ctx, mortal); err != nil || ok {
		t.Errorf("IsSuperuser(mortal) = %v, %v, want false", ok, err)
	}
}
