// Package middleware holds the request authentication, rate limiting, and
// authorization middleware for the HTTP server.
package middleware

import (
	"context"

	userdomain "safeday/backend/internal/user/domain"
)

type contextKey string

const (
	identityKey contextKey = "identity"
	clientIPKey contextKey = "client_ip"
)

// Identity is the authenticated caller attached to the request context by the
// session middleware.
type Identity struct {
	User     *userdomain.User
	DeviceID string
	Token    string
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentity returns the authenticated identity, or nil when the request did
// not pass the session middleware.
func GetIdentity(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// WithClientIP returns ctx carrying the client IP.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the client IP recorded on ctx, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
