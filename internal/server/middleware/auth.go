package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"safeday/backend/internal/auth/service"
	"safeday/backend/internal/httpx"
)

// DeviceHeader carries the stable device identifier on every request.
const DeviceHeader = "X-Device-ID"

// ClientIPMiddleware records the client IP on the request context, honoring
// X-Forwarded-For when a proxy set it.
func ClientIPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.Header.Get("X-Forwarded-For")
		if ip != "" {
			// First hop is the original client.
			if idx := strings.IndexByte(ip, ','); idx >= 0 {
				ip = ip[:idx]
			}
			ip = strings.TrimSpace(ip)
		} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
		next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
	})
}

// Session authenticates requests with a bearer token and device id. Every
// request is checked against the session store and the user's current role;
// the token snapshot alone never grants access. On success the caller's
// identity is attached to the request context.
func Session(auth *service.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.Error(w, http.StatusUnauthorized, "missing_token", "authorization header required")
				return
			}
			deviceID := r.Header.Get(DeviceHeader)
			if deviceID == "" {
				httpx.Error(w, http.StatusUnauthorized, "missing_device", "X-Device-ID header required")
				return
			}

			user, err := auth.Authenticate(r.Context(), token, deviceID)
			if err != nil {
				var revoked *service.RevokedError
				switch {
				case errors.As(err, &revoked):
					httpx.Error(w, http.StatusUnauthorized, revoked.Reason, "session is no longer valid")
				case errors.Is(err, service.ErrInvalidToken):
					httpx.Error(w, http.StatusUnauthorized, "invalid_token", "token is malformed or badly signed")
				default:
					httpx.Error(w, http.StatusInternalServerError, "internal", "authentication failed")
				}
				return
			}

			ctx := WithIdentity(r.Context(), &Identity{User: user, DeviceID: deviceID, Token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only callers whose current role is in the given set.
// Must run after Session.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[strings.ToLower(role)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if id == nil {
				httpx.Error(w, http.StatusUnauthorized, "missing_token", "authentication required")
				return
			}
			if _, ok := allowed[strings.ToLower(id.User.RoleName)]; !ok {
				httpx.Error(w, http.StatusForbidden, "forbidden", "role not permitted")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCurrentPassword blocks all routes except the password-change and
// logout endpoints while the caller's account has a pending forced password
// change. Must run after Session.
func RequireCurrentPassword(exempt ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		allowed[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := GetIdentity(r.Context())
			if id != nil && id.User.MustChangePassword {
				if _, ok := allowed[r.URL.Path]; !ok {
					httpx.Error(w, http.StatusForbidden, "password_change_required", "password must be changed before continuing")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
