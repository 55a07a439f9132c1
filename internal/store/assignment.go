// ABOUTME: Store methods for role assignments — the authz persistence boundary.
// ABOUTME: Implements authz.AssignmentStore; replace-on-assign runs in one tx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const assignmentColumns = "user_id, wildcard, organization_id, product_id, repository_id, role_name, role_level"

// elementPredicate matches exactly one hierarchy element. Absent components
// become IS NULL so an org-level row never matches a product-level query.
func elementPredicate(id hierarchy.ID) sq.Sqlizer {
	if id.IsWildcard() {
		return sq.Eq{"wildcard": true}
	}
	eq := sq.Eq{
		"wildcard":        false,
		"organization_id": id.Organization(),
		"product_id":      nil,
		"repository_id":   nil,
	}
	if id.Product() != 0 {
		eq["product_id"] = id.Product()
	}
	if id.Repository() != 0 {
		eq["repository_id"] = id.Repository()
	}
	return eq
}

// coveringPredicate matches the element itself, all of its ancestors, and
// wildcard rows — every assignment that can apply to id by inheritance.
func coveringPredicate(id hierarchy.ID) sq.Sqlizer {
	or := sq.Or{sq.Eq{"wildcard": true}}
	or = append(or, elementPredicate(id))
	for _, p := range id.Parents() {
		or = append(or, elementPredicate(p))
	}
	return or
}

// scanStoredAssignment reads one role_assignments row into the authz types.
// Component NULLs are mapped back to the compound id; a row whose components
// violate the level invariants is reported as an error (data corruption).
func scanStoredAssignment(scan func(dest ...any) error) (authz.UserAssignment, error) {
	var (
		a        authz.UserAssignment
		wildcard bool
		org      sql.NullInt64
		product  sql.NullInt64
		repo     sql.NullInt64
		level    string
	)
	if err := scan(&a.UserID, &wildcard, &org, &product, &repo, &a.RoleName, &level); err != nil {
		return authz.UserAssignment{}, err
	}
	if wildcard {
		a.ID = hierarchy.Wildcard
	} else {
		id, err := hierarchy.New(org.Int64, product.Int64, repo.Int64)
		if err != nil {
			return authz.UserAssignment{}, fmt.Errorf("assignment row: %w", err)
		}
		a.ID = id
	}
	// An unknown level string maps to the zero Level; the authz layer treats
	// the resulting (name, level) pair as a corrupt encoding and drops it.
	a.RoleLevel, _ = hierarchy.ParseLevel(level)
	return a, nil
}

func (s *Store) queryAssignments(ctx context.Context, sb sq.SelectBuilder) ([]authz.UserAssignment, error) {
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var out []authz.UserAssignment
	for rows.Next() {
		a, err := scanStoredAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadAssignments returns every assignment of userID applicable to target:
// the target itself, its ancestors, and wildcard grants.
func (s *Store) LoadAssignments(ctx context.Context, userID uuid.UUID, target hierarchy.ID) ([]authz.StoredAssignment, error) {
	sb := psql.Select(assignmentColumns).
		From("role_assignments").
		Where(sq.Eq{"user_id": userID}).
		Where(coveringPredicate(target))
	rows, err := s.queryAssignments(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("load assignments: %w", err)
	}
	return stripUsers(rows), nil
}

// LoadAllAssignments returns the complete assignment set of one user.
func (s *Store) LoadAllAssignments(ctx context.Context, userID uuid.UUID) ([]authz.StoredAssignment, error) {
	sb := psql.Select(assignmentColumns).
		From("role_assignments").
		Where(sq.Eq{"user_id": userID})
	rows, err := s.queryAssignments(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("load all assignments: %w", err)
	}
	return stripUsers(rows), nil
}

func stripUsers(rows []authz.UserAssignment) []authz.StoredAssignment {
	out := make([]authz.StoredAssignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.StoredAssignment)
	}
	return out
}

// InsertAssignment stores a role grant at (userID, id). Any existing
// assignment at exactly that element is removed in the same transaction —
// replace semantics, last write wins, no merging of roles at one element.
func (s *Store) InsertAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID, roleName string, roleLevel hierarchy.Level) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		delQuery, delArgs, err := psql.Delete("role_assignments").
			Where(sq.Eq{"user_id": userID}).
			Where(elementPredicate(id)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
			return fmt.Errorf("replace assignment: %w", err)
		}

		insQuery, insArgs, err := psql.Insert("role_assignments").
			Columns(assignmentColumns).
			Values(userID, id.IsWildcard(),
				nullableID(id.Organization()), nullableID(id.Product()), nullableID(id.Repository()),
				roleName, roleLevel.String()).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			return fmt.Errorf("insert assignment: %w", err)
		}
		return nil
	})
}

// DeleteAssignment removes the assignment of userID at exactly id.
// Returns false, not an error, when nothing matched.
func (s *Store) DeleteAssignment(ctx context.Context, userID uuid.UUID, id hierarchy.ID) (bool, error) {
	query, args, err := psql.Delete("role_assignments").
		Where(sq.Eq{"user_id": userID}).
		Where(elementPredicate(id)).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	return n > 0, nil
}

// ResolveAncestors maps a raw single-level reference to its full compound id
// by looking up the parent chain. Returns the invalid zero id, not an error,
// when the referenced element does not exist — permission checks on it then
// fail closed.
func (s *Store) ResolveAncestors(ctx context.Context, ref authz.Ref) (hierarchy.ID, error) {
	switch ref.Level {
	case hierarchy.LevelOrganization:
		var id int64
		err := s.db.QueryRowContext(ctx,
			"SELECT id FROM organizations WHERE id = $1", ref.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return hierarchy.ID{}, nil
		}
		if err != nil {
			return hierarchy.ID{}, fmt.Errorf("resolve organization %d: %w", ref.ID, err)
		}
		return hierarchy.OrganizationID(id), nil

	case hierarchy.LevelProduct:
		var orgID int64
		err := s.db.QueryRowContext(ctx,
			"SELECT organization_id FROM products WHERE id = $1", ref.ID).Scan(&orgID)
		if errors.Is(err, sql.ErrNoRows) {
			return hierarchy.ID{}, nil
		}
		if err != nil {
			return hierarchy.ID{}, fmt.Errorf("resolve product %d: %w", ref.ID, err)
		}
		return hierarchy.ProductID(orgID, ref.ID), nil

	case hierarchy.LevelRepository:
		var orgID, productID int64
		err := s.db.QueryRowContext(ctx, `
			SELECT p.organization_id, r.product_id
			FROM repositories r
			JOIN products p ON p.id = r.product_id
			WHERE r.id = $1`, ref.ID).Scan(&orgID, &productID)
		if errors.Is(err, sql.ErrNoRows) {
			return hierarchy.ID{}, nil
		}
		if err != nil {
			return hierarchy.ID{}, fmt.Errorf("resolve repository %d: %w", ref.ID, err)
		}
		return hierarchy.RepositoryID(orgID, productID, ref.ID), nil
	}
	return hierarchy.ID{}, nil
}

// ListAssignmentsAt returns the assignments of all users at exactly id.
func (s *Store) ListAssignmentsAt(ctx context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
	sb := psql.Select(assignmentColumns).
		From("role_assignments").
		Where(elementPredicate(id))
	rows, err := s.queryAssignments(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("list assignments at %s: %w", id, err)
	}
	return rows, nil
}

// ListAssignmentsCovering returns the assignments of all users that apply to
// id by inheritance: at id itself, at any ancestor, or at wildcard scope.
func (s *Store) ListAssignmentsCovering(ctx context.Context, id hierarchy.ID) ([]authz.UserAssignment, error) {
	sb := psql.Select(assignmentColumns).
		From("role_assignments").
		Where(coveringPredicate(id))
	rows, err := s.queryAssignments(ctx, sb)
	if err != nil {
		return nil, fmt.Errorf("list assignments covering %s: %w", id, err)
	}
	return rows, nil
}

// nullableID converts a component value to its column representation,
// 0 meaning absent.
func nullableID(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Valid: true, Int64: v}
}
