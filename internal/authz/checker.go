// ABOUTME: PermissionChecker — a pure predicate over a role's permission sets.
// ABOUTME: Satisfied iff every required permission at every level is present.
package authz

// Checker is an immutable triad of required permission sets, one per level.
// An empty set at a level is vacuously satisfied.
type Checker struct {
	organization []OrganizationPermission
	product      []ProductPermission
	repository   []RepositoryPermission
}

// RequireOrganizationPermissions builds a checker requiring perms at
// organization level only.
func RequireOrganizationPermissions(perms ...OrganizationPermission) Checker {
	return Checker{organization: perms}
}

// RequireProductPermissions builds a checker requiring perms at product level only.
func RequireProductPermissions(perms ...ProductPermission) Checker {
	return Checker{product: perms}
}

// RequireRepositoryPermissions builds a checker requiring perms at repository
// level only.
func RequireRepositoryPermissions(perms ...RepositoryPermission) Checker {
	return Checker{repository: perms}
}

// RoleChecker builds a checker requiring exactly r's permissions at all three
// levels. Satisfied by any role at least as permissive as r.
func RoleChecker(r Role) Checker {
	return Checker{
		organization: r.Organization,
		product:      r.Product,
		repository:   r.Repository,
	}
}

// Satisfied reports whether r holds every required permission at every level.
func (c Checker) Satisfied(r Role) bool {
	return containsAll(r.Organization, c.organization) &&
		containsAll(r.Product, c.product) &&
		containsAll(r.Repository, c.repository)
}

// containsAll reports whether every element of want is present in have.
// Linear scan — permission sets have at most eight elements.
func containsAll[T comparable](have, want []T) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
