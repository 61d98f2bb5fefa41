package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	userdomain "safeday/backend/internal/user/domain"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withUser(r *http.Request, u *userdomain.User) *http.Request {
	return r.WithContext(WithIdentity(r.Context(), &Identity{User: u, DeviceID: "d1", Token: "t"}))
}

func TestClientIPMiddleware(t *testing.T) {
	var got string
	h := ClientIPMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = ClientIP(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:4711"
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "192.0.2.7" {
		t.Errorf("remote addr: got %q", got)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "203.0.113.9" {
		t.Errorf("forwarded: got %q", got)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("admin", "manager")(okHandler())

	cases := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"Manager", http.StatusOK},
		{"employee", http.StatusForbidden},
	}
	for _, c := range cases {
		r := withUser(httptest.NewRequest(http.MethodGet, "/", nil), &userdomain.User{ID: 1, RoleName: c.role})
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != c.want {
			t.Errorf("role %q: status %d, want %d", c.role, w.Code, c.want)
		}
	}

	// No identity at all.
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no identity: status %d, want 401", w.Code)
	}
}

func TestRequireCurrentPassword(t *testing.T) {
	h := RequireCurrentPassword("/auth/password", "/auth/logout")(okHandler())

	pending := &userdomain.User{ID: 1, MustChangePassword: true}
	clean := &userdomain.User{ID: 2}

	cases := []struct {
		user *userdomain.User
		path string
		want int
	}{
		{pending, "/reports", http.StatusForbidden},
		{pending, "/auth/password", http.StatusOK},
		{pending, "/auth/logout", http.StatusOK},
		{clean, "/reports", http.StatusOK},
	}
	for _, c := range cases {
		r := withUser(httptest.NewRequest(http.MethodGet, c.path, nil), c.user)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != c.want {
			t.Errorf("user %d path %s: status %d, want %d", c.user.ID, c.path, w.Code, c.want)
		}
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := bearerToken(r); ok {
		t.Error("missing header accepted")
	}

	r.Header.Set("Authorization", "Basic abc")
	if _, ok := bearerToken(r); ok {
		t.Error("basic auth accepted")
	}

	r.Header.Set("Authorization", "Bearer tok-123")
	tok, ok := bearerToken(r)
	if !ok || tok != "tok-123" {
		t.Errorf("got %q/%v, want tok-123/true", tok, ok)
	}

	r.Header.Set("Authorization", "bearer tok-456")
	if tok, ok := bearerToken(r); !ok || tok != "tok-456" {
		t.Errorf("lowercase scheme: got %q/%v", tok, ok)
	}
}

func TestRateLimiterDisabledWithoutRedis(t *testing.T) {
	l := NewRateLimiter(nil, 1, time.Minute, zerolog.Nop())
	h := l.Limit("test")(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status %d, want 200", i, w.Code)
		}
	}
}
