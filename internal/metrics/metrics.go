// Package metrics exposes Prometheus counters for the authentication core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Logins counts login attempts by outcome (success, conflict, takeover,
	// invalid_credential, error).
	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeday_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	// OTPChallenges counts takeover passcode operations by result (issued,
	// dispatch_failed, confirmed, invalid_code, too_many_attempts, too_soon).
	OTPChallenges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeday_otp_challenges_total",
		Help: "Takeover passcode operations by result.",
	}, []string{"result"})

	// SessionsEnded counts session terminations by reason.
	SessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeday_sessions_ended_total",
		Help: "Session terminations by reason.",
	}, []string{"reason"})

	// ReaperSweeps counts reaper ticks by result (ok, error).
	ReaperSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeday_reaper_sweeps_total",
		Help: "Session reaper sweeps by result.",
	}, []string{"result"})
)
