// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	authhandler "safeday/backend/internal/auth/handler"
	"safeday/backend/internal/auth/service"
	"safeday/backend/internal/httpx"
	lookuphandler "safeday/backend/internal/lookup/handler"
	"safeday/backend/internal/server/middleware"
)

// Deps carries the collaborators the router mounts.
type Deps struct {
	Auth   *authhandler.Handler
	Lookup *lookuphandler.Handler
	// AuthService backs the session middleware.
	AuthService *service.Service
	// Redis backs the rate limiter; nil disables limiting.
	Redis *redis.Client
	// DevOTPEnabled mounts GET /dev/otp.
	DevOTPEnabled  bool
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter builds the full route tree: public login and lookup endpoints,
// the authenticated /auth group, and the operational endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.DeviceHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	limiter := middleware.NewRateLimiter(d.Redis, 30, time.Minute, d.Log)
	// Tighter window on the credential-bearing endpoints.
	credLimiter := middleware.NewRateLimiter(d.Redis, 10, time.Minute, d.Log)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Public: login form data and the login/takeover flow.
	r.Group(func(r chi.Router) {
		r.Use(limiter.Limit("public"))
		r.Get("/sites", d.Lookup.Sites)
		r.Get("/departments", d.Lookup.Departments)
	})
	r.Group(func(r chi.Router) {
		r.Use(credLimiter.Limit("credential"))
		r.Post("/auth/login", d.Auth.Login)
		r.Post("/auth/otp/request", d.Auth.RequestOTP)
		r.Post("/auth/otp/confirm", d.Auth.ConfirmOTP)
	})

	// Authenticated: every request revalidates the session and current role.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(d.AuthService))
		r.Use(middleware.RequireCurrentPassword("/auth/password", "/auth/logout", "/auth/validate"))
		r.Post("/auth/logout", d.Auth.Logout)
		r.Get("/auth/validate", d.Auth.Validate)
		r.Post("/auth/password", d.Auth.ChangePassword)
	})

	if d.DevOTPEnabled {
		r.Get("/dev/otp", d.Auth.DevOTP)
	}

	return r
}
