package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/device/domain"
)

// PostgresRepository implements Repository against the device_bindings table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a binding repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Upsert records or refreshes the push address for the pair.
func (r *PostgresRepository) Upsert(ctx context.Context, b *domain.Binding) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO device_bindings (user_id, device_id, push_token, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, device_id)
		DO UPDATE SET push_token = EXCLUDED.push_token, updated_at = now()`,
		b.UserID, b.DeviceID, b.PushToken)
	return err
}

// ListByUser returns all bindings for the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Binding, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, device_id, push_token, updated_at
		FROM device_bindings
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Binding
	for rows.Next() {
		var b domain.Binding
		if err := rows.Scan(&b.UserID, &b.DeviceID, &b.PushToken, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
