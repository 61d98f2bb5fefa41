// Package audit records authentication events (login, logout, takeover,
// forced revocation) as a best-effort audit trail.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"safeday/backend/internal/audit/domain"
	auditrepo "safeday/backend/internal/audit/repository"
)

// Audit event actions recorded by the authentication core.
const (
	ActionLoginSuccess      = "login_success"
	ActionLoginConflict     = "login_conflict"
	ActionLoginFailure      = "login_failure"
	ActionTakeoverRequested = "takeover_requested"
	ActionTakeoverConfirmed = "takeover_confirmed"
	ActionLogout            = "logout"
	ActionRoleDrift         = "role_drift_revocation"
	ActionPasswordChanged   = "password_changed"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// Logger writes a single audit event per call. Best-effort: failures are
// logged and do not affect the caller.
type Logger interface {
	LogEvent(ctx context.Context, userID int64, deviceID, action, metadata string)
}

// RepoLogger implements Logger using the audit repository and an optional IP
// extractor.
type RepoLogger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         zerolog.Logger
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for
// the client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log zerolog.Logger) *RepoLogger {
	return &RepoLogger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// LogEvent writes one audit log entry. Errors are logged and not returned.
func (l *RepoLogger) LogEvent(ctx context.Context, userID int64, deviceID, action, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	entry := &domain.AuthEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		DeviceID:  deviceID,
		Action:    action,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Error().Err(err).Str("action", action).Msg("audit: failed to log event")
	}
}
