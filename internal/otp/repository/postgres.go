package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/otp/domain"
)

// PostgresRepository implements Repository against the otp_challenges table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a challenge repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const challengeColumns = `id, user_id, device_id, code_hash, code_salt, attempts, expires_at, consumed_at, created_at`

func scanChallenge(row pgx.Row) (*domain.Challenge, error) {
	var c domain.Challenge
	err := row.Scan(&c.ID, &c.UserID, &c.DeviceID, &c.CodeHash, &c.CodeSalt,
		&c.Attempts, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create expires any open challenge for the pair and inserts c, atomically.
// Superseded challenges are expired rather than consumed: consumed_at is
// reserved for code-verified challenges, which authorize forced logins.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Challenge) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		UPDATE otp_challenges
		SET expires_at = least(expires_at, now())
		WHERE user_id = $1
		  AND device_id = $2
		  AND consumed_at IS NULL`, c.UserID, c.DeviceID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO otp_challenges (id, user_id, device_id, code_hash, code_salt, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.DeviceID, c.CodeHash, c.CodeSalt, c.Attempts, c.ExpiresAt, c.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// LatestUnconsumed returns the newest unconsumed challenge for the pair, or nil.
func (r *PostgresRepository) LatestUnconsumed(ctx context.Context, userID int64, deviceID string) (*domain.Challenge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+challengeColumns+`
		FROM otp_challenges
		WHERE user_id = $1
		  AND device_id = $2
		  AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, userID, deviceID)
	c, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LatestConsumed returns the newest consumed challenge for the pair, or nil.
func (r *PostgresRepository) LatestConsumed(ctx context.Context, userID int64, deviceID string) (*domain.Challenge, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+challengeColumns+`
		FROM otp_challenges
		WHERE user_id = $1
		  AND device_id = $2
		  AND consumed_at IS NOT NULL
		ORDER BY consumed_at DESC
		LIMIT 1`, userID, deviceID)
	c, err := scanChallenge(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// IncrementAttempts bumps the attempt counter and returns the new value.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE otp_challenges
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`, id).Scan(&attempts)
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// Consume marks the challenge consumed; the conditional update makes the
// check-then-mark atomic so a code is never accepted twice.
func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE otp_challenges
		SET consumed_at = now()
		WHERE id = $1
		  AND consumed_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
