// Package reaper periodically ends sessions that expired or went idle, so the
// database converges even for clients that vanished without a logout.
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"safeday/backend/internal/metrics"
	sessiondomain "safeday/backend/internal/session/domain"
	sessionrepo "safeday/backend/internal/session/repository"
)

// Reaper sweeps the session table on a fixed interval. Each sweep ends
// expired sessions with reason token_expired and idle sessions with reason
// inactive. Sweeps are idempotent bulk updates, so overlapping or missed
// ticks are harmless.
type Reaper struct {
	sessions  sessionrepo.Repository
	log       zerolog.Logger
	interval  time.Duration
	staleness time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New returns a Reaper sweeping every interval, treating sessions idle longer
// than staleness as dead.
func New(sessions sessionrepo.Repository, interval, staleness time.Duration, log zerolog.Logger) *Reaper {
	return &Reaper{
		sessions:  sessions,
		log:       log,
		interval:  interval,
		staleness: staleness,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine. The first sweep runs
// immediately so a restart catches up on sessions that died while the server
// was down.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		r.sweep(ctx)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep(ctx)
			case <-r.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for the in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

// Sweep runs one sweep synchronously. Exposed for operational tooling.
func (r *Reaper) Sweep(ctx context.Context) {
	r.sweep(ctx)
}

func (r *Reaper) sweep(ctx context.Context) {
	expired, err := r.sessions.EndExpired(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("reaper: ending expired sessions failed")
		metrics.ReaperSweeps.WithLabelValues("error").Inc()
		return
	}
	idle, err := r.sessions.EndIdle(ctx, r.staleness)
	if err != nil {
		r.log.Error().Err(err).Msg("reaper: ending idle sessions failed")
		metrics.ReaperSweeps.WithLabelValues("error").Inc()
		return
	}
	if expired > 0 {
		metrics.SessionsEnded.WithLabelValues(string(sessiondomain.EndReasonTokenExpired)).Add(float64(expired))
	}
	if idle > 0 {
		metrics.SessionsEnded.WithLabelValues(string(sessiondomain.EndReasonInactive)).Add(float64(idle))
	}
	if expired > 0 || idle > 0 {
		r.log.Info().Int64("expired", expired).Int64("idle", idle).Msg("reaper: sessions ended")
	}
	metrics.ReaperSweeps.WithLabelValues("ok").Inc()
}
