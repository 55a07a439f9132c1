// ABOUTME: Built-in role catalog: reader/writer/admin at each hierarchy level.
// ABOUTME: Cross-level inheritance is baked into the static tables, not recomputed.
package authz

import "github.com/complyhub/complyhub/internal/hierarchy"

// Role names as stored in the role_assignments table.
const (
	RoleNameReader = "reader"
	RoleNameWriter = "writer"
	RoleNameAdmin  = "admin"
)

// Role is an immutable named bundle of permissions at all three levels,
// assignable at exactly one level. A role defined at a higher level carries
// the permission sets it implies at every level below, so resolution never
// has to recompute inheritance.
type Role struct {
	Name  string
	Level hierarchy.Level

	Organization []OrganizationPermission
	Product      []ProductPermission
	Repository   []RepositoryPermission
}

// IsZero reports whether r is the "grants nothing" placeholder used for
// unrecognized role encodings.
func (r Role) IsZero() bool { return r.Name == "" }

// Repository roles only vary the repository permission set; organization and
// product access stays read-only.
var (
	RepositoryReader = Role{
		Name:         RoleNameReader,
		Level:        hierarchy.LevelRepository,
		Organization: organizationReadPermissions,
		Product:      productReadPermissions,
		Repository:   []RepositoryPermission{RepoRead, RepoReadScans},
	}
	RepositoryWriter = Role{
		Name:         RoleNameWriter,
		Level:        hierarchy.LevelRepository,
		Organization: organizationReadPermissions,
		Product:      productReadPermissions,
		Repository:   []RepositoryPermission{RepoRead, RepoReadScans, RepoWrite, RepoTriggerScan},
	}
	RepositoryAdmin = Role{
		Name:         RoleNameAdmin,
		Level:        hierarchy.LevelRepository,
		Organization: organizationReadPermissions,
		Product:      productReadPermissions,
		Repository:   AllRepositoryPermissions,
	}
)

// Product roles inherit the matching repository role's permission set and
// never grant organization write access.
var (
	ProductReader = Role{
		Name:         RoleNameReader,
		Level:        hierarchy.LevelProduct,
		Organization: organizationReadPermissions,
		Product:      []ProductPermission{ProductRead},
		Repository:   RepositoryReader.Repository,
	}
	ProductWriter = Role{
		Name:         RoleNameWriter,
		Level:        hierarchy.LevelProduct,
		Organization: organizationReadPermissions,
		Product:      []ProductPermission{ProductRead, ProductWrite, ProductCreateRepository, ProductTriggerScan},
		Repository:   RepositoryWriter.Repository,
	}
	ProductAdmin = Role{
		Name:         RoleNameAdmin,
		Level:        hierarchy.LevelProduct,
		Organization: organizationReadPermissions,
		Product:      AllProductPermissions,
		Repository:   RepositoryAdmin.Repository,
	}
)

// Organization roles inherit the matching product role's product and
// repository permission sets, so an organization-level grant always implies
// the matching-or-weaker grant at every level below.
var (
	OrganizationReader = Role{
		Name:         RoleNameReader,
		Level:        hierarchy.LevelOrganization,
		Organization: []OrganizationPermission{OrgRead},
		Product:      ProductReader.Product,
		Repository:   ProductReader.Repository,
	}
	OrganizationWriter = Role{
		Name:         RoleNameWriter,
		Level:        hierarchy.LevelOrganization,
		Organization: []OrganizationPermission{OrgRead, OrgWrite, OrgCreateProduct},
		Product:      ProductWriter.Product,
		Repository:   ProductWriter.Repository,
	}
	OrganizationAdmin = Role{
		Name:         RoleNameAdmin,
		Level:        hierarchy.LevelOrganization,
		Organization: AllOrganizationPermissions,
		Product:      ProductAdmin.Product,
		Repository:   ProductAdmin.Repository,
	}
)

var rolesByLevel = map[hierarchy.Level][]Role{
	hierarchy.LevelOrganization: {OrganizationReader, OrganizationWriter, OrganizationAdmin},
	hierarchy.LevelProduct:      {ProductReader, ProductWriter, ProductAdmin},
	hierarchy.LevelRepository:   {RepositoryReader, RepositoryWriter, RepositoryAdmin},
}

// RolesForLevel returns the built-in roles assignable at level, in increasing
// permission order. Wildcard (and unknown levels) have no assignable roles.
func RolesForLevel(level hierarchy.Level) []Role {
	return rolesByLevel[level]
}

// RoleByName looks up a built-in role by its defining level and name.
// Returns false for unknown pairs — deserialization callers treat that as a
// corrupt encoding, never as a fatal condition.
func RoleByName(level hierarchy.Level, name string) (Role, bool) {
	for _, r := range rolesByLevel[level] {
		if r.Name == name {
			return r, true
		}
	}
	return Role{}, false
}
