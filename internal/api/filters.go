// ABOUTME: Translates batch authorization results into store list scopes.
// ABOUTME: Superusers and ancestor grants list everything; others get id sets.
package api

import (
	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
)

// listScope converts perms into the filter for listing elements of level
// under parent. parent is the zero ID when listing organizations.
//
// A superuser, or a caller whose direct grant covers parent (and therefore
// every element below it), lists unrestricted. Everyone else is restricted to
// the elements of level that appear in the include or implicit-include sets
// and sit under parent.
func listScope(perms authz.HierarchyPermissions, level hierarchy.Level, parent hierarchy.ID) store.ListScope {
	if perms.Superuser() {
		return store.ScopeAll
	}
	if parent.IsValid() && coveredByDirect(perms, parent) {
		return store.ScopeAll
	}

	var ids []int64
	seen := map[int64]bool{}
	for _, set := range []map[hierarchy.Level][]hierarchy.ID{perms.Includes(), perms.ImplicitIncludes()} {
		for _, id := range set[level] {
			if parent.IsValid() {
				p, ok := id.Parent()
				if !ok || p != parent {
					continue
				}
			}
			n := component(id, level)
			if !seen[n] {
				seen[n] = true
				ids = append(ids, n)
			}
		}
	}
	return store.ScopeIDs(ids)
}

// coveredByDirect reports whether id or one of its ancestors carries a direct
// grant in perms. Implicit includes confer visibility of the element itself
// but never of its children, so they do not count here.
func coveredByDirect(perms authz.HierarchyPermissions, id hierarchy.ID) bool {
	includes := perms.Includes()
	for cur, ok := id, true; ok; cur, ok = cur.Parent() {
		for _, in := range includes[cur.Level()] {
			if in == cur {
				return true
			}
		}
	}
	return false
}

// component extracts the element's own numeric id at level.
func component(id hierarchy.ID, level hierarchy.Level) int64 {
	switch level {
	case hierarchy.LevelOrganization:
		return id.Organization()
	case hierarchy.LevelProduct:
		return id.Product()
	case hierarchy.LevelRepository:
		return id.Repository()
	}
	return 0
}
