// ABOUTME: Unit tests for the PermissionChecker predicate.
// ABOUTME: Pure logic tests — no database required.
package authz_test

import (
	"testing"

	"github.com/complyhub/complyhub/internal/authz"
)

func TestChecker_SingleLevel(t *testing.T) {
	t.Parallel()
	c := authz.RequireRepositoryPermissions(authz.RepoWrite)

	if c.Satisfied(authz.RepositoryReader) {
		t.Error("repository reader must not satisfy a WRITE check")
	}
	if !c.Satisfied(authz.RepositoryWriter) {
		t.Error("repository writer must satisfy a WRITE check")
	}
	if !c.Satisfied(authz.OrganizationWriter) {
		t.Error("organization writer inherits repository WRITE")
	}
}

func TestChecker_EmptyIsVacuouslySatisfied(t *testing.T) {
	t.Parallel()
	var c authz.Checker
	for _, r := range []authz.Role{authz.RepositoryReader, authz.OrganizationAdmin} {
		if !c.Satisfied(r) {
			t.Errorf("empty checker must accept %v/%s", r.Level, r.Name)
		}
	}
}

func TestChecker_MultiplePermissionsAreConjunctive(t *testing.T) {
	t.Parallel()
	c := authz.RequireRepositoryPermissions(authz.RepoRead, authz.RepoTriggerScan)
	if c.Satisfied(authz.RepositoryReader) {
		t.Error("reader lacks TRIGGER_SCAN; conjunction must fail")
	}
	if !c.Satisfied(authz.RepositoryWriter) {
		t.Error("writer holds both READ and TRIGGER_SCAN")
	}
}

func TestRoleChecker_SelfSatisfying(t *testing.T) {
	t.Parallel()
	for _, r := range []authz.Role{
		authz.OrganizationReader, authz.ProductWriter, authz.RepositoryAdmin,
	} {
		if !authz.RoleChecker(r).Satisfied(r) {
			t.Errorf("role %v/%s must satisfy its own checker", r.Level, r.Name)
		}
	}
}
