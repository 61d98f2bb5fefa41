package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/user/domain"
)

// PostgresRepository implements Repository against the users table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a user repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const userColumns = `u.id, u.name, COALESCE(u.email, ''), u.password, u.role_id, r.role_name,
	       u.site_id, u.department_id, u.must_change_password, u.deleted_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.SiteID, &u.DepartmentID, &u.MustChangePassword, &u.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByNaturalKey returns the single matching non-deleted user, nil when none,
// or ErrDataIntegrity when the tuple resolves to more than one row.
func (r *PostgresRepository) GetByNaturalKey(ctx context.Context, name string, siteID, departmentID int64) (*domain.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE trim(upper(u.name)) = trim(upper($1))
		  AND u.site_id = $2
		  AND u.department_id = $3
		  AND u.deleted_at IS NULL
		LIMIT 2`, name, siteID, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	default:
		return nil, ErrDataIntegrity
	}
}

// GetByID returns the non-deleted user with its current role name, or nil.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
		  AND u.deleted_at IS NULL`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdatePassword replaces the password hash and clears must_change_password.
func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password = $2,
		    must_change_password = FALSE,
		    updated_at = now()
		WHERE id = $1
		  AND deleted_at IS NULL`, id, passwordHash)
	return err
}
