package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"safeday/backend/internal/httpx"
)

// RateLimiter applies a fixed-window per-IP request limit backed by Redis.
// Fails open: when Redis is unreachable the request proceeds.
type RateLimiter struct {
	rdb    *redis.Client
	log    zerolog.Logger
	limit  int
	window time.Duration
}

// NewRateLimiter returns a limiter allowing limit requests per window per
// client IP. rdb may be nil; then limiting is disabled.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, log: log, limit: limit, window: window}
}

// Limit wraps next with the per-IP limit under the given bucket name. Routes
// sharing a bucket share their counters.
func (l *RateLimiter) Limit(bucket string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.rdb == nil {
				next.ServeHTTP(w, r)
				return
			}
			ip := ClientIP(r.Context())
			if ip == "" {
				ip = r.RemoteAddr
			}
			key := fmt.Sprintf("ratelimit:%s:%s", bucket, ip)

			count, err := l.rdb.Incr(r.Context(), key).Result()
			if err != nil {
				l.log.Warn().Err(err).Str("bucket", bucket).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				l.rdb.Expire(r.Context(), key, l.window)
			}
			if count > int64(l.limit) {
				httpx.Error(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
