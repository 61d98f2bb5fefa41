package repository

import (
	"context"

	"safeday/backend/internal/otp/domain"
)

// Repository defines persistence for takeover passcode challenges. The table
// is owned exclusively by the authentication core.
type Repository interface {
	// Create inserts c and, in the same transaction, expires any prior open
	// challenge for the same (user, device) pair so at most one open
	// challenge exists per pair. Superseded challenges are expired rather
	// than consumed; consumed_at marks code-verified challenges only.
	Create(ctx context.Context, c *domain.Challenge) error

	// LatestUnconsumed returns the newest unconsumed challenge for the pair
	// regardless of expiry (callers apply expiry and cooldown rules), or nil.
	LatestUnconsumed(ctx context.Context, userID int64, deviceID string) (*domain.Challenge, error)

	// LatestConsumed returns the newest consumed challenge for the pair, or
	// nil. Used to check that a forced login follows a verified challenge.
	LatestConsumed(ctx context.Context, userID int64, deviceID string) (*domain.Challenge, error)

	// IncrementAttempts bumps the challenge's attempt counter and returns the
	// new value. Called before the code comparison so the brute-force cap
	// holds even when comparison fails.
	IncrementAttempts(ctx context.Context, id string) (int, error)

	// Consume marks the challenge consumed only if it is still unconsumed.
	// Returns false when another request consumed it first.
	Consume(ctx context.Context, id string) (bool, error)
}
