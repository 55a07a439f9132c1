// ABOUTME: Batch resolution — the full set of elements where a checker holds.
// ABOUTME: Produces the include sets list endpoints use to build IN-filters.
package authz

import (
	"slices"

	"github.com/complyhub/complyhub/internal/hierarchy"
)

// HierarchyPermissions is the batch-resolution result for one user and one
// checker. Includes are elements where the checker is satisfied directly or by
// an ancestor's grant; ImplicitIncludes are ancestors that must stay visible
// (breadcrumbs, listings) only because a descendant is included.
//
// Results are read-only snapshots; callers must not mutate the returned maps.
type HierarchyPermissions interface {
	Includes() map[hierarchy.Level][]hierarchy.ID
	ImplicitIncludes() map[hierarchy.Level][]hierarchy.ID
	Superuser() bool

	// GrantedOn returns the element whose grant makes id visible: the closest
	// directly-granted ancestor-or-self, or the descendant that caused id's
	// implicit inclusion. False when id is not visible at all.
	GrantedOn(id hierarchy.ID) (hierarchy.ID, bool)

	// Has reports whether id is visible (directly or implicitly).
	Has(id hierarchy.ID) bool
}

// ResolveHierarchy computes the HierarchyPermissions for the user's complete
// assignment set against checker. Pure function of its inputs: assignments
// are processed in ascending id order, so repeated calls with set-equal input
// produce identical results. When an ancestor's implicit inclusion could be
// attributed to several descendants, the lowest-ordered descendant wins.
func ResolveHierarchy(assignments []Assignment, checker Checker) HierarchyPermissions {
	// Superuser short-circuit: an admin grant at wildcard scope trumps
	// everything else, whatever other assignments exist.
	for _, a := range assignments {
		if a.ID.IsWildcard() && a.Role.Level == hierarchy.LevelOrganization && a.Role.Name == RoleNameAdmin {
			return superuserGrants
		}
	}

	sorted := make([]Assignment, len(assignments))
	copy(sorted, assignments)
	slices.SortFunc(sorted, func(a, b Assignment) int {
		return hierarchy.Compare(a.ID, b.ID)
	})

	byLevel := make(map[hierarchy.Level][]Assignment)
	for _, a := range sorted {
		byLevel[a.ID.Level()] = append(byLevel[a.ID.Level()], a)
	}

	g := &standardGrants{
		direct:          make(map[hierarchy.ID]struct{}),
		directByLevel:   make(map[hierarchy.Level][]hierarchy.ID),
		implicitByLevel: make(map[hierarchy.Level][]hierarchy.ID),
		causes:          make(map[hierarchy.ID]hierarchy.ID),
	}

	// Pass A — direct grants, top-down. An element is added only when its own
	// role satisfies the checker and no ancestor placed earlier in this pass
	// already covers it: a covered descendant is redundant for filter-building
	// whether its own role is weaker (it cannot narrow the ancestor's grant)
	// or equally strong (a no-op). An uncovered descendant is judged on its
	// own role, which is how a lower level widens.
	for _, level := range hierarchy.Levels() {
		for _, a := range byLevel[level] {
			if !checker.Satisfied(a.Role) {
				continue
			}
			if parent, ok := a.ID.Parent(); ok {
				if _, covered := g.findDirectAncestor(parent); covered {
					continue
				}
			}
			g.direct[a.ID] = struct{}{}
			g.directByLevel[level] = append(g.directByLevel[level], a.ID)
		}
	}

	// Pass B — implicit ancestor visibility for satisfied grants whose chain
	// is not already directly covered.
	for _, level := range []hierarchy.Level{hierarchy.LevelProduct, hierarchy.LevelRepository} {
		for _, a := range byLevel[level] {
			if !checker.Satisfied(a.Role) {
				continue
			}
			parents := a.ID.Parents()
			covered := false
			for _, p := range parents {
				if _, ok := g.direct[p]; ok {
					covered = true
					break
				}
			}
			if covered {
				continue
			}
			for _, p := range parents {
				if _, seen := g.causes[p]; seen {
					continue
				}
				g.causes[p] = a.ID
				g.implicitByLevel[p.Level()] = append(g.implicitByLevel[p.Level()], p)
			}
		}
	}

	return g
}

// standardGrants is the non-superuser HierarchyPermissions variant.
type standardGrants struct {
	direct          map[hierarchy.ID]struct{}
	directByLevel   map[hierarchy.Level][]hierarchy.ID
	implicitByLevel map[hierarchy.Level][]hierarchy.ID
	causes          map[hierarchy.ID]hierarchy.ID
}

func (g *standardGrants) Includes() map[hierarchy.Level][]hierarchy.ID {
	return g.directByLevel
}

func (g *standardGrants) ImplicitIncludes() map[hierarchy.Level][]hierarchy.ID {
	return g.implicitByLevel
}

func (g *standardGrants) Superuser() bool { return false }

func (g *standardGrants) GrantedOn(id hierarchy.ID) (hierarchy.ID, bool) {
	if granted, ok := g.findDirectAncestor(id); ok {
		return granted, true
	}
	// Implicit inclusion is an exact match only — no ancestor walk.
	if cause, ok := g.causes[id]; ok {
		return cause, true
	}
	return hierarchy.ID{}, false
}

func (g *standardGrants) Has(id hierarchy.ID) bool {
	_, ok := g.GrantedOn(id)
	return ok
}

// findDirectAncestor walks id, id.Parent(), ... to the root, returning the
// first element present in the direct-grant set. Bounded at depth 3 by
// construction of the hierarchy.
func (g *standardGrants) findDirectAncestor(id hierarchy.ID) (hierarchy.ID, bool) {
	cur := id
	for cur.IsValid() {
		if _, ok := g.direct[cur]; ok {
			return cur, true
		}
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return hierarchy.ID{}, false
}

// superuserGrants is the stateless singleton returned for wildcard admins.
var superuserGrants HierarchyPermissions = superuser{}

type superuser struct{}

func (superuser) Includes() map[hierarchy.Level][]hierarchy.ID {
	return map[hierarchy.Level][]hierarchy.ID{
		hierarchy.LevelWildcard: {hierarchy.Wildcard},
	}
}

func (superuser) ImplicitIncludes() map[hierarchy.Level][]hierarchy.ID {
	return map[hierarchy.Level][]hierarchy.ID{}
}

func (superuser) Superuser() bool { return true }

func (superuser) GrantedOn(hierarchy.ID) (hierarchy.ID, bool) {
	return hierarchy.Wildcard, true
}

func (superuser) Has(hierarchy.ID) bool { return true }
