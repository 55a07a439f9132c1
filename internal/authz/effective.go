// ABOUTME: Point resolution — a user's effective permissions at one element.
// ABOUTME: Straight per-level union of every assignment reachable by inheritance.
package authz

import "github.com/complyhub/complyhub/internal/hierarchy"

// Assignment is one decoded role grant: Role is granted at element ID.
type Assignment struct {
	ID   hierarchy.ID
	Role Role
}

// EffectiveRole is the resolved per-(user, element) permission snapshot.
// It has no lifecycle beyond the request that computed it.
type EffectiveRole struct {
	ID        hierarchy.ID
	Superuser bool

	organization []OrganizationPermission
	product      []ProductPermission
	repository   []RepositoryPermission
}

// HasOrganizationPermission reports whether the resolved organization set
// contains p.
func (e EffectiveRole) HasOrganizationPermission(p OrganizationPermission) bool {
	return contains(e.organization, p)
}

// HasProductPermission reports whether the resolved product set contains p.
func (e EffectiveRole) HasProductPermission(p ProductPermission) bool {
	return contains(e.product, p)
}

// HasRepositoryPermission reports whether the resolved repository set contains p.
func (e EffectiveRole) HasRepositoryPermission(p RepositoryPermission) bool {
	return contains(e.repository, p)
}

// Satisfies reports whether the resolved permission sets meet every
// requirement of c. Superusers satisfy every checker.
func (e EffectiveRole) Satisfies(c Checker) bool {
	if e.Superuser {
		return true
	}
	return containsAll(e.organization, c.organization) &&
		containsAll(e.product, c.product) &&
		containsAll(e.repository, c.repository)
}

// ResolveEffective computes the effective role for one target element from
// every assignment that can apply to it (the target itself, its ancestors,
// and wildcard grants — the caller loads exactly that set).
//
// The reduction is a per-level set union: the role catalog already encodes
// cross-level inheritance, so no "most specific wins" narrowing happens here.
// No assignments yields the empty, non-superuser result.
func ResolveEffective(target hierarchy.ID, assignments []Assignment) EffectiveRole {
	e := EffectiveRole{ID: target}
	for _, a := range assignments {
		if a.ID.IsWildcard() && a.Role.Level == hierarchy.LevelOrganization && a.Role.Name == RoleNameAdmin {
			e.Superuser = true
		}
		e.organization = union(e.organization, a.Role.Organization)
		e.product = union(e.product, a.Role.Product)
		e.repository = union(e.repository, a.Role.Repository)
	}
	return e
}

func contains[T comparable](have []T, p T) bool {
	for _, h := range have {
		if h == p {
			return true
		}
	}
	return false
}

func union[T comparable](acc, more []T) []T {
	for _, m := range more {
		if !contains(acc, m) {
			acc = append(acc, m)
		}
	}
	return acc
}
