package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/lookup/domain"
)

// PostgresRepository implements Repository against the sites and departments
// tables.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a lookup repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// ListSites returns all non-deleted sites ordered by name.
func (r *PostgresRepository) ListSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, site_name
		FROM sites
		WHERE deleted_at IS NULL
		ORDER BY site_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Site, error) {
		var s domain.Site
		err := row.Scan(&s.ID, &s.Name)
		return s, err
	})
}

// ListDepartments returns departments ordered by name, limited to the given
// site when siteID is nonzero.
func (r *PostgresRepository) ListDepartments(ctx context.Context, siteID int64) ([]domain.Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, site_id, department_name
		FROM departments
		WHERE $1 = 0 OR site_id = $1
		ORDER BY department_name`, siteID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Department, error) {
		var d domain.Department
		err := row.Scan(&d.ID, &d.SiteID, &d.Name)
		return d, err
	})
}
