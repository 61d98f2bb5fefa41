package domain

import "time"

// Challenge is one takeover passcode attempt for a (user, device) pair.
// Only the salted hash of the code is stored. Challenges are consumed or
// expire; rows are never deleted.
//
// Invariant: at most one unconsumed, unexpired challenge exists per
// (user, device) pair. Creating a new one expires any prior open challenge
// for that pair in the same transaction. ConsumedAt is set only when the
// code was verified; a consumed challenge authorizes a forced login for a
// short grace period.
type Challenge struct {
	ID         string
	UserID     int64
	DeviceID   string
	CodeHash   string
	CodeSalt   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Open reports whether the challenge is unconsumed and unexpired at now.
func (c *Challenge) Open(now time.Time) bool {
	return c.ConsumedAt == nil && c.ExpiresAt.After(now)
}
