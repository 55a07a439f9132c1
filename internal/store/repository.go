// ABOUTME: Store methods for repository management within a product.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Repository is the leaf hierarchy element: one source repository to scan.
type Repository struct {
	ID        int64
	ProductID int64
	URL       string
	VCSType   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const repositoryColumns = "id, product_id, url, vcs_type, created_at, updated_at"

// CreateRepository inserts a new repository under productID and returns it.
func (s *Store) CreateRepository(ctx context.Context, productID int64, url, vcsType string) (*Repository, error) {
	var r Repository
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO repositories (product_id, url, vcs_type)
		VALUES ($1, $2, $3)
		RETURNING `+repositoryColumns, productID, url, vcsType).
		Scan(&r.ID, &r.ProductID, &r.URL, &r.VCSType, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	return &r, nil
}

// GetRepository returns the repository with the given id, or (nil, nil) if
// not found.
func (s *Store) GetRepository(ctx context.Context, id int64) (*Repository, error) {
	var r Repository
	err := s.db.QueryRowContext(ctx,
		"SELECT "+repositoryColumns+" FROM repositories WHERE id = $1", id).
		Scan(&r.ID, &r.ProductID, &r.URL, &r.VCSType, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository: %w", err)
	}
	return &r, nil
}

// ListRepositories returns the repositories of productID within scope,
// ordered by id.
func (s *Store) ListRepositories(ctx context.Context, productID int64, scope ListScope) ([]Repository, error) {
	sb := psql.Select(repositoryColumns).From("repositories").
		Where(sq.Eq{"product_id": productID}).
		OrderBy("id ASC")
	sb = scope.apply(sb, "id")

	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list repositories: build query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var out []Repository
	for rows.Next() {
		var r Repository
		if err := rows.Scan(&r.ID, &r.ProductID, &r.URL, &r.VCSType, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list repositories: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpdateRepository updates url and vcs type. Returns (nil, nil) if the
// repository does not exist.
func (s *Store) UpdateRepository(ctx context.Context, id int64, url, vcsType string) (*Repository, error) {
	var r Repository
	err := s.db.QueryRowContext(ctx, `
		UPDATE repositories SET url = $2, vcs_type = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+repositoryColumns, id, url, vcsType).
		Scan(&r.ID, &r.ProductID, &r.URL, &r.VCSType, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update repository: %w", err)
	}
	return &r, nil
}

// DeleteRepository removes the repository and, via FK cascade, its runs and
// role assignments. Returns false when nothing matched.
func (s *Store) DeleteRepository(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM repositories WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete repository: %w", err)
	}
	return n > 0, nil
}
