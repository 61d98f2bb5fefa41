package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"safeday/backend/internal/session/domain"
)

// PostgresRepository implements Repository against the user_sessions table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns a session repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, user_id, device_id, token, is_active, expires_at, last_seen_at, ended_at, end_reason, created_at`

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var reason *string
	err := row.Scan(&s.ID, &s.UserID, &s.DeviceID, &s.Token, &s.Active,
		&s.ExpiresAt, &s.LastSeenAt, &s.EndedAt, &reason, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if reason != nil {
		s.EndReason = domain.EndReason(*reason)
	}
	return &s, nil
}

// ReplaceActive ends all of the user's active sessions with reason and
// inserts s, in one transaction. The user's active rows are locked FOR UPDATE
// first so concurrent logins for the same user serialize on the slot.
func (r *PostgresRepository) ReplaceActive(ctx context.Context, s *domain.Session, reason domain.EndReason) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the user's active rows so concurrent logins serialize here.
	if _, err := tx.Exec(ctx,
		`SELECT id FROM user_sessions WHERE user_id = $1 AND is_active FOR UPDATE`, s.UserID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE,
		    ended_at = now(),
		    end_reason = $2
		WHERE user_id = $1
		  AND is_active`, s.UserID, string(reason))
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO user_sessions (id, user_id, device_id, token, is_active, expires_at, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7)`,
		s.ID, s.UserID, s.DeviceID, s.Token, s.ExpiresAt, s.LastSeenAt, s.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetLive returns the live session for (userID, token, deviceID), or nil.
func (r *PostgresRepository) GetLive(ctx context.Context, userID int64, token, deviceID string, staleness time.Duration) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE user_id = $1
		  AND token = $2
		  AND device_id = $3
		  AND is_active
		  AND expires_at > now()
		  AND (last_seen_at IS NULL OR last_seen_at > now() - $4::interval)`,
		userID, token, deviceID, staleness)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindConflict returns a fresh active session on another device, or nil.
func (r *PostgresRepository) FindConflict(ctx context.Context, userID int64, deviceID string, freshness time.Duration) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sessionColumns+`
		FROM user_sessions
		WHERE user_id = $1
		  AND device_id <> $2
		  AND is_active
		  AND expires_at > now()
		  AND (last_seen_at IS NULL OR last_seen_at > now() - $3::interval)
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, deviceID, freshness)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// EndByToken ends the active session carrying token. Returns false if none matched.
func (r *PostgresRepository) EndByToken(ctx context.Context, token string, reason domain.EndReason) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE,
		    ended_at = now(),
		    end_reason = $2
		WHERE token = $1
		  AND is_active`, token, string(reason))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// EndAllActiveByUser ends every active session of the user.
func (r *PostgresRepository) EndAllActiveByUser(ctx context.Context, userID int64, reason domain.EndReason) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE,
		    ended_at = now(),
		    end_reason = $2
		WHERE user_id = $1
		  AND is_active`, userID, string(reason))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// LastEndReason returns the newest recorded termination reason for token.
func (r *PostgresRepository) LastEndReason(ctx context.Context, token string) (domain.EndReason, bool, error) {
	var reason *string
	err := r.pool.QueryRow(ctx, `
		SELECT end_reason
		FROM user_sessions
		WHERE token = $1
		  AND ended_at IS NOT NULL
		ORDER BY ended_at DESC
		LIMIT 1`, token).Scan(&reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if reason == nil {
		return "", false, nil
	}
	return domain.EndReason(*reason), true, nil
}

// TouchLastSeen conditionally refreshes the heartbeat. The debounce guard
// lives in the WHERE clause so concurrent heartbeats stay commutative and
// write volume is bounded.
func (r *PostgresRepository) TouchLastSeen(ctx context.Context, userID int64, token, deviceID string, debounce time.Duration) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET last_seen_at = now()
		WHERE user_id = $1
		  AND token = $2
		  AND device_id = $3
		  AND is_active
		  AND (last_seen_at IS NULL OR last_seen_at < now() - $4::interval)`,
		userID, token, deviceID, debounce)
	return err
}

// EndExpired ends every active session past its absolute expiry.
func (r *PostgresRepository) EndExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE,
		    ended_at = now(),
		    end_reason = $1
		WHERE is_active
		  AND expires_at <= now()`, string(domain.EndReasonTokenExpired))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// EndIdle ends every active session that has not heartbeated within
// staleness. Sessions that never heartbeated are measured from creation.
func (r *PostgresRepository) EndIdle(ctx context.Context, staleness time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_sessions
		SET is_active = FALSE,
		    ended_at = now(),
		    end_reason = $1
		WHERE is_active
		  AND COALESCE(last_seen_at, created_at) < now() - $2::interval`,
		string(domain.EndReasonInactive), staleness)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
