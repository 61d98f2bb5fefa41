package domain

import "time"

// EndReason is the closed set of session termination reasons. The reason is
// recorded when a session is ended and surfaced to the client on the next
// failed authentication so it can explain why the session died.
type EndReason string

const (
	EndReasonManual          EndReason = "manual"
	EndReasonRelogin         EndReason = "relogin"
	EndReasonForceRelogin    EndReason = "force_relogin"
	EndReasonRoleChanged     EndReason = "role_changed"
	EndReasonTokenExpired    EndReason = "token_expired"
	EndReasonInactive        EndReason = "inactive"
	EndReasonPasswordChanged EndReason = "password_changed"
)

// Valid reports whether r is one of the closed enumeration values.
func (r EndReason) Valid() bool {
	switch r {
	case EndReasonManual, EndReasonRelogin, EndReasonForceRelogin,
		EndReasonRoleChanged, EndReasonTokenExpired, EndReasonInactive,
		EndReasonPasswordChanged:
		return true
	}
	return false
}

// Session is one row per issued bearer token. Rows are never deleted; ended
// sessions are retained as an audit trail.
//
// Invariant: for a given user, at most one session has Active true and
// ExpiresAt in the future. Enforced by the login transaction (end-all then
// insert under row locks), not by a unique constraint, because takeover needs
// to inspect the old row before invalidating it.
type Session struct {
	ID         string
	UserID     int64
	DeviceID   string
	Token      string
	Active     bool
	ExpiresAt  time.Time
	LastSeenAt *time.Time // nil until first heartbeat
	EndedAt    *time.Time
	EndReason  EndReason // empty while active
	CreatedAt  time.Time
}
