package repository

import (
	"context"
	"time"

	"safeday/backend/internal/session/domain"
)

// Repository defines persistence for sessions. The session table is owned
// exclusively by the authentication core.
type Repository interface {
	// ReplaceActive atomically ends every active session of the user with the
	// given reason and inserts s as the new active session. This is the login
	// write path; it runs under row locks so two concurrent logins cannot both
	// win the single-active-device slot.
	ReplaceActive(ctx context.Context, s *domain.Session, reason domain.EndReason) error

	// GetLive returns the session matching (userID, token, deviceID) that is
	// active, unexpired, and whose last-seen timestamp is null or within
	// staleness. Returns nil when no such session exists.
	GetLive(ctx context.Context, userID int64, token, deviceID string, staleness time.Duration) (*domain.Session, error)

	// FindConflict returns an active, unexpired session of the user on a
	// device other than deviceID whose last-seen timestamp is null or within
	// freshness, or nil if none. A session that has not heartbeated within
	// freshness is treated as abandoned and does not block a new login.
	FindConflict(ctx context.Context, userID int64, deviceID string, freshness time.Duration) (*domain.Session, error)

	// EndByToken ends the active session carrying token with the given
	// reason. Returns false when no active session matched (already ended).
	EndByToken(ctx context.Context, token string, reason domain.EndReason) (bool, error)

	// EndAllActiveByUser ends every active session of the user with the given
	// reason. Returns the number of sessions ended.
	EndAllActiveByUser(ctx context.Context, userID int64, reason domain.EndReason) (int64, error)

	// LastEndReason returns the most recent termination reason recorded for
	// token, if any.
	LastEndReason(ctx context.Context, token string) (domain.EndReason, bool, error)

	// TouchLastSeen refreshes the live session's last-seen timestamp, but only
	// if more than debounce has elapsed since the previous refresh (or none
	// was ever recorded). Idempotent within the debounce window.
	TouchLastSeen(ctx context.Context, userID int64, token, deviceID string, debounce time.Duration) error

	// EndExpired ends every active session whose absolute expiry has passed,
	// with reason token_expired. Returns the number of sessions ended.
	EndExpired(ctx context.Context) (int64, error)

	// EndIdle ends every active session whose last-seen timestamp is null or
	// older than staleness, with reason inactive. Returns the number ended.
	EndIdle(ctx context.Context, staleness time.Duration) (int64, error)
}
