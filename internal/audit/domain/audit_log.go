package domain

import "time"

// AuthEvent is one audit log entry for an authentication event.
type AuthEvent struct {
	ID        string
	UserID    int64 // 0 when the event has no resolved user
	DeviceID  string
	Action    string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
