package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/audit/domain"
)

// PostgresRepository implements Repository against the auth_audit_logs table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an audit repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts one audit event row.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuthEvent) error {
	var userID *int64
	if e.UserID != 0 {
		userID = &e.UserID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO auth_audit_logs (id, user_id, device_id, action, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, userID, e.DeviceID, e.Action, e.IP, e.Metadata, e.CreatedAt)
	return err
}
