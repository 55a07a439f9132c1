// ABOUTME: Compound value identifier for one element of the ownership tree.
// ABOUTME: Comparable with ==; the Wildcard sentinel never equals a real element.
package hierarchy

import (
	"fmt"
	"strconv"
)

// ID identifies one hierarchy element. It carries the organization id always,
// the product id at product/repository level, and the repository id at
// repository level. The zero value is invalid and serves as the "does not
// resolve" sentinel returned by ancestor lookups.
//
// IDs are plain comparable values: two IDs are the same element iff they are
// == equal. Component value 0 means absent (all real ids are bigserial ≥ 1).
type ID struct {
	wildcard   bool
	org        int64
	product    int64
	repository int64
}

// Wildcard addresses every hierarchy element (superuser scope). It compares
// equal only to itself and has no parent.
var Wildcard = ID{wildcard: true}

// OrganizationID returns the ID of an organization element.
func OrganizationID(org int64) ID {
	return ID{org: org}
}

// ProductID returns the ID of a product element under org.
func ProductID(org, product int64) ID {
	return ID{org: org, product: product}
}

// RepositoryID returns the ID of a repository element under org/product.
func RepositoryID(org, product, repository int64) ID {
	return ID{org: org, product: product, repository: repository}
}

// New builds an ID from raw components, 0 meaning absent. The present
// components must form a contiguous prefix of [org, product, repository];
// anything else is a data error, caught here rather than at use sites.
func New(org, product, repository int64) (ID, error) {
	switch {
	case org == 0:
		return ID{}, fmt.Errorf("hierarchy id: organization component is required")
	case repository != 0 && product == 0:
		return ID{}, fmt.Errorf("hierarchy id: repository %d without a product", repository)
	}
	return ID{org: org, product: product, repository: repository}, nil
}

// IsValid reports whether id addresses an element (including Wildcard).
func (id ID) IsValid() bool {
	return id.wildcard || id.org != 0
}

// IsWildcard reports whether id is the Wildcard sentinel.
func (id ID) IsWildcard() bool { return id.wildcard }

// Level returns the deepest non-absent component's level.
func (id ID) Level() Level {
	switch {
	case id.wildcard:
		return LevelWildcard
	case id.repository != 0:
		return LevelRepository
	case id.product != 0:
		return LevelProduct
	}
	return LevelOrganization
}

// Organization returns the organization component (0 for Wildcard).
func (id ID) Organization() int64 { return id.org }

// Product returns the product component, or 0 when absent.
func (id ID) Product() int64 { return id.product }

// Repository returns the repository component, or 0 when absent.
func (id ID) Repository() int64 { return id.repository }

// Parent returns the element one level up and true, or a zero ID and false
// for organizations (the tree root) and for Wildcard.
func (id ID) Parent() (ID, bool) {
	switch id.Level() {
	case LevelRepository:
		return ProductID(id.org, id.product), true
	case LevelProduct:
		return OrganizationID(id.org), true
	}
	return ID{}, false
}

// Parents returns all strict ancestors, immediate parent first, root last.
// Organizations and Wildcard have none.
func (id ID) Parents() []ID {
	var out []ID
	cur := id
	for {
		p, ok := cur.Parent()
		if !ok {
			return out
		}
		out = append(out, p)
		cur = p
	}
}

// Compare orders ids by (org, product, repository), Wildcard first. Used to
// give the resolution algorithms a deterministic processing order.
func Compare(a, b ID) int {
	switch {
	case a.wildcard && b.wildcard:
		return 0
	case a.wildcard:
		return -1
	case b.wildcard:
		return 1
	}
	if a.org != b.org {
		return cmpInt64(a.org, b.org)
	}
	if a.product != b.product {
		return cmpInt64(a.product, b.product)
	}
	return cmpInt64(a.repository, b.repository)
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// String renders the id as a slash-separated component path, for logs.
func (id ID) String() string {
	switch id.Level() {
	case LevelWildcard:
		return "*"
	case LevelRepository:
		return "org/" + strconv.FormatInt(id.org, 10) +
			"/product/" + strconv.FormatInt(id.product, 10) +
			"/repository/" + strconv.FormatInt(id.repository, 10)
	case LevelProduct:
		return "org/" + strconv.FormatInt(id.org, 10) +
			"/product/" + strconv.FormatInt(id.product, 10)
	}
	if !id.IsValid() {
		return "invalid"
	}
	return "org/" + strconv.FormatInt(id.org, 10)
}
