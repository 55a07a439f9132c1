// ABOUTME: Store methods for organization management.
// ABOUTME: Deletes cascade to products, repositories, and role assignments.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Organization is the top-level hierarchy element.
type Organization struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const orgColumns = "id, name, description, created_at, updated_at"

// CreateOrganization inserts a new organization and returns it.
func (s *Store) CreateOrganization(ctx context.Context, name, description string) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizations (name, description)
		VALUES ($1, $2)
		RETURNING `+orgColumns, name, description).
		Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	return &o, nil
}

// GetOrganization returns the organization with the given id, or (nil, nil)
// if not found.
func (s *Store) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx,
		"SELECT "+orgColumns+" FROM organizations WHERE id = $1", id).
		Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &o, nil
}

// ListOrganizations returns the organizations within scope, ordered by id.
func (s *Store) ListOrganizations(ctx context.Context, scope ListScope) ([]Organization, error) {
	sb := psql.Select(orgColumns).From("organizations").OrderBy("id ASC")
	sb = scope.apply(sb, "id")

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list organizations: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Organization
	for rows.Next() {
		var o Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list organizations: scan: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateOrganization updates name and description. Returns (nil, nil) if the
// organization does not exist.
func (s *Store) UpdateOrganization(ctx context.Context, id int64, name, description string) (*Organization, error) {
	var o Organization
	err := s.db.QueryRowContext(ctx, `
		UPDATE organizations SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+orgColumns, id, name, description).
		Scan(&o.ID, &o.Name, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update organization: %w", err)
	}
	return &o, nil
}

// DeleteOrganization removes the organization and, via FK cascade, all of its
// products, repositories, runs, and role assignments. Returns false when
// nothing matched.
func (s *Store) DeleteOrganization(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM organizations WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete organization: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete organization: %w", err)
	}
	return n > 0, nil
}
