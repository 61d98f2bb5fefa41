package domain

import "time"

// Binding maps a (user, device) pair to a push-notification address. The
// authentication core only writes it as a login side effect; notification
// fan-out reads it.
type Binding struct {
	UserID    int64
	DeviceID  string
	PushToken string
	UpdatedAt time.Time
}
