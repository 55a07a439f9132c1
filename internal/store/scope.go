// ABOUTME: ListScope — the id-set filter list queries get from batch
// ABOUTME: authorization resolution, applied as an = ANY(...) predicate.
package store

import (
	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
)

// ListScope restricts a list query to the hierarchy elements visible to the
// caller. The API layer builds it from the authorization engine's include
// sets; All short-circuits the filter for superusers and ancestor grants.
type ListScope struct {
	All bool
	IDs []int64
}

// ScopeAll is the unrestricted scope.
var ScopeAll = ListScope{All: true}

// ScopeIDs restricts to the given element ids. An empty set matches nothing.
func ScopeIDs(ids []int64) ListScope {
	return ListScope{IDs: ids}
}

// apply adds the scope predicate for column to sb.
func (sc ListScope) apply(sb sq.SelectBuilder, column string) sq.SelectBuilder {
	if sc.All {
		return sb
	}
	if len(sc.IDs) == 0 {
		return sb.Where(sq.Expr("FALSE"))
	}
	return sb.Where(sq.Expr(column+" = ANY(?)", pq.Array(sc.IDs)))
}
