// ABOUTME: Tests for translating authorization include sets into list scopes.
// ABOUTME: Pure — exercises listScope against resolved hierarchy permissions.
package api

import (
	"slices"
	"testing"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
)

func TestListScope_Superuser(t *testing.T) {
	t.Parallel()
	perms := authz.ResolveHierarchy([]authz.Assignment{
		{ID: hierarchy.Wildcard, Role: authz.OrganizationAdmin},
	}, authz.RequireOrganizationPermissions(authz.OrgRead))

	scope := listScope(perms, hierarchy.LevelOrganization, hierarchy.ID{})
	if !scope.All {
		t.Error("superuser scope should be unrestricted")
	}
}

func TestListScope_AncestorGrantListsAllChildren(t *testing.T) {
	t.Parallel()
	org := hierarchy.OrganizationID(1)
	perms := authz.ResolveHierarchy([]authz.Assignment{
		{ID: org, Role: authz.OrganizationReader},
	}, authz.RequireProductPermissions(authz.ProductRead))

	scope := listScope(perms, hierarchy.LevelProduct, org)
	if !scope.All {
		t.Error("org-level grant should list all products unrestricted")
	}
}

func TestListScope_DirectGrantsOnly(t *testing.T) {
	t.Parallel()
	productA := hierarchy.ProductID(1, 10)
	productB := hierarchy.ProductID(1, 20)
	perms := authz.ResolveHierarchy([]authz.Assignment{
		{ID: productA, Role: authz.ProductReader},
		{ID: productB, Role: authz.ProductReader},
	}, authz.RequireProductPermissions(authz.ProductRead))

	scope := listScope(perms, hierarchy.LevelProduct, hierarchy.OrganizationID(1))
	if scope.All {
		t.Fatal("product-level grants should not list unrestricted")
	}
	slices.Sort(scope.IDs)
	if !slices.Equal(scope.IDs, []int64{10, 20}) {
		t.Errorf("IDs = %v, want [10 20]", scope.IDs)
	}
}

func TestListScope_ExcludesOtherParents(t *testing.T) {
	t.Parallel()
	perms := authz.ResolveHierarchy([]authz.Assignment{
		{ID: hierarchy.ProductID(1, 10), Role: authz.ProductReader},
		{ID: hierarchy.ProductID(2, 30), Role: authz.ProductReader},
	}, authz.RequireProductPermissions(authz.ProductRead))

	scope := listScope(perms, hierarchy.LevelProduct, hierarchy.OrganizationID(1))
	if scope.All {
		t.Fatal("expected restricted scope")
	}
	if !slices.Equal(scope.IDs, []int64{10}) {
		t.Errorf("IDs = %v, want [10]", scope.IDs)
	}
}

func TestListScope_ImplicitAncestorVisible(t *testing.T) {
	t.Parallel()
	// A repository grant keeps its organization visible in org listings even
	// though the caller holds no organization-level role.
	perms := authz.ResolveHierarchy([]authz.Assignment{
		{ID: hierarchy.RepositoryID(3, 7, 42), Role: authz.RepositoryReader},
	}, authz.RequireOrganizationPermissions(authz.OrgRead))

	scope := listScope(perms, hierarchy.LevelOrganization, hierarchy.ID{})
	if scope.All {
		t.Fatal("expected restricted scope")
	}
	if !slices.Equal(scope.IDs, []int64{3}) {
		t.Errorf("IDs = %v, want [3]", scope.IDs)
	}
}

func TestListScope_NoGrantsMatchesNothing(t *testing.T) {
	t.Parallel()
	perms := authz.ResolveHierarchy(nil, authz.RequireOrganizationPermissions(authz.OrgRead))

	scope := listScope(perms, hierarchy.LevelOrganization, hierarchy.ID{})
	if scope.All || len(scope.IDs) != 0 {
		t.Errorf("scope = %+v, want empty restricted scope", scope)
	}
}
