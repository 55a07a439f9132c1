// ABOUTME: Per-level permission enumerations for hierarchy elements.
// ABOUTME: Values are stored as uppercase strings in role definitions and checks.
package authz

// OrganizationPermission names an action controllable at organization level.
type OrganizationPermission string

const (
	OrgRead          OrganizationPermission = "READ"
	OrgWrite         OrganizationPermission = "WRITE"
	OrgWriteSecrets  OrganizationPermission = "WRITE_SECRETS"
	OrgManageGroups  OrganizationPermission = "MANAGE_GROUPS"
	OrgCreateProduct OrganizationPermission = "CREATE_PRODUCT"
	OrgDelete        OrganizationPermission = "DELETE"
)

// AllOrganizationPermissions lists every organization-level permission.
var AllOrganizationPermissions = []OrganizationPermission{
	OrgRead, OrgWrite, OrgWriteSecrets, OrgManageGroups, OrgCreateProduct, OrgDelete,
}

// ProductPermission names an action controllable at product level.
type ProductPermission string

const (
	ProductRead             ProductPermission = "READ"
	ProductWrite            ProductPermission = "WRITE"
	ProductWriteSecrets     ProductPermission = "WRITE_SECRETS"
	ProductManageGroups     ProductPermission = "MANAGE_GROUPS"
	ProductCreateRepository ProductPermission = "CREATE_REPOSITORY"
	ProductTriggerScan      ProductPermission = "TRIGGER_SCAN"
	ProductDelete           ProductPermission = "DELETE"
)

// AllProductPermissions lists every product-level permission.
var AllProductPermissions = []ProductPermission{
	ProductRead, ProductWrite, ProductWriteSecrets, ProductManageGroups,
	ProductCreateRepository, ProductTriggerScan, ProductDelete,
}

// RepositoryPermission names an action controllable at repository level.
type RepositoryPermission string

const (
	RepoRead              RepositoryPermission = "READ"
	RepoWrite             RepositoryPermission = "WRITE"
	RepoWriteSecrets      RepositoryPermission = "WRITE_SECRETS"
	RepoManageGroups      RepositoryPermission = "MANAGE_GROUPS"
	RepoReadScans         RepositoryPermission = "READ_SCANS"
	RepoTriggerScan       RepositoryPermission = "TRIGGER_SCAN"
	RepoManageResolutions RepositoryPermission = "MANAGE_RESOLUTIONS"
	RepoDelete            RepositoryPermission = "DELETE"
)

// AllRepositoryPermissions lists every repository-level permission.
var AllRepositoryPermissions = []RepositoryPermission{
	RepoRead, RepoWrite, RepoWriteSecrets, RepoManageGroups,
	RepoReadScans, RepoTriggerScan, RepoManageResolutions, RepoDelete,
}

// Read-only permission sets shared by the role catalog: every product or
// repository role implies at least read visibility of its ancestors.
var (
	organizationReadPermissions = []OrganizationPermission{OrgRead}
	productReadPermissions      = []ProductPermission{ProductRead}
)
