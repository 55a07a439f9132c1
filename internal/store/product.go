// ABOUTME: Store methods for product management within an organization.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Product is the middle hierarchy element, owned by one organization.
type Product struct {
	ID             int64
	OrganizationID int64
	Name           string
	Description    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const productColumns = "id, organization_id, name, description, created_at, updated_at"

// CreateProduct inserts a new product under orgID and returns it.
func (s *Store) CreateProduct(ctx context.Context, orgID int64, name, description string) (*Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (organization_id, name, description)
		VALUES ($1, $2, $3)
		RETURNING `+productColumns, orgID, name, description).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &p, nil
}

// GetProduct returns the product with the given id, or (nil, nil) if not found.
func (s *Store) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// ListProducts returns the products of orgID within scope, ordered by id.
func (s *Store) ListProducts(ctx context.Context, orgID int64, scope ListScope) ([]Product, error) {
	sb := psql.Select(productColumns).From("products").
		Where(sq.Eq{"organization_id": orgID}).
		OrderBy("id ASC")
	sb = scope.apply(sb, "id")

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list products: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list products: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateProduct updates name and description. Returns (nil, nil) if the
// product does not exist.
func (s *Store) UpdateProduct(ctx context.Context, id int64, name, description string) (*Product, error) {
	var p Product
	err := s.db.QueryRowContext(ctx, `
		UPDATE products SET name = $2, description = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns, id, name, description).
		Scan(&p.ID, &p.OrganizationID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return &p, nil
}

// DeleteProduct removes the product and, via FK cascade, its repositories,
// runs, and role assignments. Returns false when nothing matched.
func (s *Store) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete product: %w", err)
	}
	return n > 0, nil
}
