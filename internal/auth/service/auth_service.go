// Package service implements the authentication core: credential
// verification, single-active-device session management, device takeover
// passcodes, and per-request session authentication.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"safeday/backend/internal/audit"
	devicedomain "safeday/backend/internal/device/domain"
	devicerepo "safeday/backend/internal/device/repository"
	"safeday/backend/internal/devotp"
	"safeday/backend/internal/notify"
	"safeday/backend/internal/otp"
	otpdomain "safeday/backend/internal/otp/domain"
	otprepo "safeday/backend/internal/otp/repository"
	"safeday/backend/internal/security"
	sessiondomain "safeday/backend/internal/session/domain"
	sessionrepo "safeday/backend/internal/session/repository"
	userdomain "safeday/backend/internal/user/domain"
	userrepo "safeday/backend/internal/user/repository"
)

// Sentinel errors surfaced to the transport layer. Handlers map these to
// status codes and machine-readable reasons.
var (
	// ErrInvalidCredentials covers unknown users, deleted users, and wrong
	// passwords alike, so a caller cannot probe which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDeviceConflict means another device holds a fresh active session and
	// the login was not authorized to take it over.
	ErrDeviceConflict = errors.New("active session on another device")
	// ErrNoConflict means a takeover passcode was requested but no other
	// device holds a fresh session, so there is nothing to take over.
	ErrNoConflict = errors.New("no session to take over")
	// ErrOTPTooSoon means a passcode was requested before the resend cooldown
	// on the previous one elapsed.
	ErrOTPTooSoon = errors.New("passcode requested too soon")
	// ErrOTPNotFound means no open passcode challenge exists for the pair.
	ErrOTPNotFound = errors.New("no open passcode challenge")
	// ErrTooManyAttempts means the challenge's attempt cap was reached.
	ErrTooManyAttempts = errors.New("too many passcode attempts")
	// ErrInvalidOTP means the submitted passcode did not match.
	ErrInvalidOTP = errors.New("invalid passcode")
	// ErrInvalidToken means the bearer token is malformed or badly signed.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoContactAddress means the user has no registered address to deliver
	// a passcode to.
	ErrNoContactAddress = errors.New("user has no contact address")
	// ErrPasswordMismatch means the current password check failed on a
	// password change.
	ErrPasswordMismatch = errors.New("current password does not match")
	// ErrSamePassword means the new password equals the current one.
	ErrSamePassword = errors.New("new password must differ from current")
	// ErrWeakPassword means the new password fails the minimum length rule.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
)

// RevokedError reports why a presented session no longer authenticates. The
// reason is one of the termination reasons, or "invalid_session" when the
// session was never recorded.
type RevokedError struct {
	Reason string
}

func (e *RevokedError) Error() string {
	return fmt.Sprintf("session revoked: %s", e.Reason)
}

// Params collects the collaborators and tuning knobs of the Service.
type Params struct {
	Users      userrepo.Repository
	Sessions   sessionrepo.Repository
	Challenges otprepo.Repository
	Devices    devicerepo.Repository
	Hasher     *security.Hasher
	Tokens     *security.TokenProvider
	Dispatcher notify.Dispatcher
	DevCodes   devotp.Store // nil outside dev OTP mode
	Auditor    audit.Logger
	Log        zerolog.Logger

	// Freshness bounds how recently the holder of the active-device slot must
	// have been seen for its session to block a new login.
	Freshness time.Duration
	// Staleness bounds how long a session survives without a heartbeat.
	Staleness time.Duration
	// Debounce is the minimum gap between persisted heartbeats per session.
	Debounce time.Duration
	// OTPTTL is the passcode challenge lifetime.
	OTPTTL time.Duration
	// OTPCooldown is the minimum gap between passcode requests per pair.
	OTPCooldown time.Duration
	// OTPMaxAttempts caps verification attempts per challenge.
	OTPMaxAttempts int
	// TakeoverGrace bounds how long a confirmed challenge authorizes a forced
	// login before it goes stale.
	TakeoverGrace time.Duration
}

// Service is the authentication core. All methods are safe for concurrent use.
type Service struct {
	users      userrepo.Repository
	sessions   sessionrepo.Repository
	challenges otprepo.Repository
	devices    devicerepo.Repository
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	dispatcher notify.Dispatcher
	devCodes   devotp.Store
	auditor    audit.Logger
	log        zerolog.Logger

	freshness      time.Duration
	staleness      time.Duration
	debounce       time.Duration
	otpTTL         time.Duration
	otpCooldown    time.Duration
	otpMaxAttempts int
	takeoverGrace  time.Duration

	now func() time.Time
}

// NewService wires a Service from its collaborators.
func NewService(p Params) *Service {
	return &Service{
		users:          p.Users,
		sessions:       p.Sessions,
		challenges:     p.Challenges,
		devices:        p.Devices,
		hasher:         p.Hasher,
		tokens:         p.Tokens,
		dispatcher:     p.Dispatcher,
		devCodes:       p.DevCodes,
		auditor:        p.Auditor,
		log:            p.Log,
		freshness:      p.Freshness,
		staleness:      p.Staleness,
		debounce:       p.Debounce,
		otpTTL:         p.OTPTTL,
		otpCooldown:    p.OTPCooldown,
		otpMaxAttempts: p.OTPMaxAttempts,
		takeoverGrace:  p.TakeoverGrace,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Credentials is the natural-key login tuple plus the password.
type Credentials struct {
	Name         string
	Password     string
	SiteID       int64
	DepartmentID int64
}

// LoginInput is one login attempt from a device.
type LoginInput struct {
	Credentials
	DeviceID string
	// PushToken, when present, refreshes the device's push binding.
	PushToken string
	// OTPCode, when present, confirms an open takeover challenge in the same
	// call and authorizes displacing another device's session.
	OTPCode string
	// Force authorizes displacement on the strength of a challenge confirmed
	// shortly before this call.
	Force bool
}

// LoginResult is the issued session.
type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      userdomain.Summary `json:"user"`
}

// Login verifies credentials, enforces the single-active-device rule, and on
// success atomically replaces any prior sessions with a new one.
//
// When another device holds a fresh session, the login fails with
// ErrDeviceConflict unless the caller proves a verified takeover: either an
// OTPCode confirmed in this call, or Force backed by a challenge confirmed
// within the takeover grace window.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	user, err := s.verifyCredentials(ctx, in.Credentials)
	if err != nil {
		return nil, err
	}

	conflict, err := s.sessions.FindConflict(ctx, user.ID, in.DeviceID, s.freshness)
	if err != nil {
		return nil, err
	}

	reason := sessiondomain.EndReasonRelogin
	if conflict != nil {
		authorized, err := s.takeoverAuthorized(ctx, user.ID, in.DeviceID, in.OTPCode, in.Force)
		if err != nil {
			return nil, err
		}
		if !authorized {
			s.auditor.LogEvent(ctx, user.ID, in.DeviceID, audit.ActionLoginConflict,
				fmt.Sprintf("blocked by device %s", conflict.DeviceID))
			return nil, ErrDeviceConflict
		}
		reason = sessiondomain.EndReasonForceRelogin
	}

	token, expiresAt, err := s.tokens.Issue(user.ID, user.RoleID, user.RoleName, user.SiteID, user.DepartmentID)
	if err != nil {
		return nil, err
	}
	session := &sessiondomain.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		DeviceID:  in.DeviceID,
		Token:     token,
		Active:    true,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
	}
	if err := s.sessions.ReplaceActive(ctx, session, reason); err != nil {
		return nil, err
	}

	if in.PushToken != "" {
		binding := &devicedomain.Binding{
			UserID:    user.ID,
			DeviceID:  in.DeviceID,
			PushToken: in.PushToken,
			UpdatedAt: s.now(),
		}
		if err := s.devices.Upsert(ctx, binding); err != nil {
			s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("device binding upsert failed")
		}
	}

	action := audit.ActionLoginSuccess
	if reason == sessiondomain.EndReasonForceRelogin {
		action = audit.ActionTakeoverConfirmed
	}
	s.auditor.LogEvent(ctx, user.ID, in.DeviceID, action, "")

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user.Summary()}, nil
}

// ChallengeResult identifies an issued takeover passcode challenge.
type ChallengeResult struct {
	ChallengeID string    `json:"challenge_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// RequestChallenge issues a takeover passcode for the (user, device) pair and
// delivers it to the user's registered contact address. Requires valid
// credentials and a live conflicting session. A new request within the resend
// cooldown of the previous one fails with ErrOTPTooSoon.
//
// Delivery is best-effort: a gateway failure is logged but does not void the
// challenge, because the cooldown already bounds retry pressure.
func (s *Service) RequestChallenge(ctx context.Context, creds Credentials, deviceID string) (*ChallengeResult, error) {
	user, err := s.verifyCredentials(ctx, creds)
	if err != nil {
		return nil, err
	}

	conflict, err := s.sessions.FindConflict(ctx, user.ID, deviceID, s.freshness)
	if err != nil {
		return nil, err
	}
	if conflict == nil {
		return nil, ErrNoConflict
	}

	prior, err := s.challenges.LatestUnconsumed(ctx, user.ID, deviceID)
	if err != nil {
		return nil, err
	}
	if prior != nil && s.now().Sub(prior.CreatedAt) < s.otpCooldown {
		return nil, ErrOTPTooSoon
	}

	if user.Email == "" {
		return nil, ErrNoContactAddress
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return nil, err
	}
	salt, err := otp.NewSalt()
	if err != nil {
		return nil, err
	}
	challenge := &otpdomain.Challenge{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		DeviceID:  deviceID,
		CodeHash:  otp.HashCode(salt, code),
		CodeSalt:  salt,
		ExpiresAt: s.now().Add(s.otpTTL),
		CreatedAt: s.now(),
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, err
	}

	if err := s.dispatcher.SendCode(ctx, user.Email, code); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("passcode delivery failed")
	}
	if s.devCodes != nil {
		s.devCodes.Put(ctx, challenge.ID, code, challenge.ExpiresAt)
	}
	s.auditor.LogEvent(ctx, user.ID, deviceID, audit.ActionTakeoverRequested, "")

	return &ChallengeResult{ChallengeID: challenge.ID, ExpiresAt: challenge.ExpiresAt}, nil
}

// ConfirmChallenge verifies a submitted passcode against the open challenge
// for the pair and consumes it. A confirmed challenge authorizes a forced
// login within the takeover grace window.
func (s *Service) ConfirmChallenge(ctx context.Context, creds Credentials, deviceID, code string) error {
	user, err := s.verifyCredentials(ctx, creds)
	if err != nil {
		return err
	}
	if err := s.confirmOpenChallenge(ctx, user.ID, deviceID, code); err != nil {
		return err
	}
	s.auditor.LogEvent(ctx, user.ID, deviceID, audit.ActionTakeoverConfirmed, "")
	return nil
}

// Logout ends the caller's session with reason manual. Idempotent: logging
// out an already-ended session succeeds.
func (s *Service) Logout(ctx context.Context, userID int64, deviceID, token string) error {
	ended, err := s.sessions.EndByToken(ctx, token, sessiondomain.EndReasonManual)
	if err != nil {
		return err
	}
	if ended {
		s.auditor.LogEvent(ctx, userID, deviceID, audit.ActionLogout, "")
	}
	return nil
}

// ChangePassword verifies the current password, stores the new hash, and ends
// every active session of the user with reason password_changed. The caller
// must log in again afterwards.
func (s *Service) ChangePassword(ctx context.Context, userID int64, deviceID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(current)); err != nil {
		return ErrPasswordMismatch
	}
	if next == current {
		return ErrSamePassword
	}
	if len(next) < 8 {
		return ErrWeakPassword
	}
	hash, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if _, err := s.sessions.EndAllActiveByUser(ctx, userID, sessiondomain.EndReasonPasswordChanged); err != nil {
		return err
	}
	s.auditor.LogEvent(ctx, userID, deviceID, audit.ActionPasswordChanged, "")
	return nil
}

// Authenticate validates a bearer token and device id against the session
// store and the user's current role. On success it refreshes the session's
// last-seen timestamp (debounced) and returns the current user.
//
// Failure modes, in check order:
//   - expired token: the session row is eagerly ended and a RevokedError with
//     reason token_expired is returned
//   - malformed or badly signed token: ErrInvalidToken
//   - no live session row for (user, token, device): RevokedError carrying the
//     recorded termination reason, or "invalid_session" when none exists
//   - user deleted since login: RevokedError with reason "invalid_session",
//     without recording a termination reason
//   - role drift between the token snapshot and the current role: the session
//     is revoked with reason role_changed
func (s *Service) Authenticate(ctx context.Context, token, deviceID string) (*userdomain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			if _, endErr := s.sessions.EndByToken(ctx, token, sessiondomain.EndReasonTokenExpired); endErr != nil {
				s.log.Warn().Err(endErr).Msg("failed to end expired session")
			}
			return nil, &RevokedError{Reason: string(sessiondomain.EndReasonTokenExpired)}
		}
		return nil, ErrInvalidToken
	}
	userID := claims.UserID()

	live, err := s.sessions.GetLive(ctx, userID, token, deviceID, s.staleness)
	if err != nil {
		return nil, err
	}
	if live == nil {
		reason, found, err := s.sessions.LastEndReason(ctx, token)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, &RevokedError{Reason: "invalid_session"}
		}
		return nil, &RevokedError{Reason: string(reason)}
	}

	if err := s.sessions.TouchLastSeen(ctx, userID, token, deviceID, s.debounce); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("heartbeat update failed")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Account removed. Not a role drift, so no drift audit row and no
		// role_changed reason: the session is left for the reaper and every
		// request on it fails with a plain unauthorized.
		return nil, &RevokedError{Reason: "invalid_session"}
	}
	if user.RoleID != claims.RoleID {
		if _, endErr := s.sessions.EndByToken(ctx, token, sessiondomain.EndReasonRoleChanged); endErr != nil {
			s.log.Warn().Err(endErr).Int64("user_id", userID).Msg("failed to revoke drifted session")
		}
		s.auditor.LogEvent(ctx, userID, deviceID, audit.ActionRoleDrift, "")
		return nil, &RevokedError{Reason: string(sessiondomain.EndReasonRoleChanged)}
	}

	return user, nil
}

// verifyCredentials resolves the natural key and checks the password. Unknown
// user and wrong password are indistinguishable to the caller.
func (s *Service) verifyCredentials(ctx context.Context, creds Credentials) (*userdomain.User, error) {
	user, err := s.users.GetByNaturalKey(ctx, creds.Name, creds.SiteID, creds.DepartmentID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(creds.Password)); err != nil {
		s.auditor.LogEvent(ctx, user.ID, "", audit.ActionLoginFailure, "password mismatch")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// takeoverAuthorized decides whether a conflicted login may displace the
// other device's session. An inline code confirms the open challenge in this
// call; force relies on a challenge confirmed within the grace window.
func (s *Service) takeoverAuthorized(ctx context.Context, userID int64, deviceID, code string, force bool) (bool, error) {
	if code != "" {
		if err := s.confirmOpenChallenge(ctx, userID, deviceID, code); err != nil {
			return false, err
		}
		return true, nil
	}
	if !force {
		return false, nil
	}
	confirmed, err := s.challenges.LatestConsumed(ctx, userID, deviceID)
	if err != nil {
		return false, err
	}
	if confirmed == nil || confirmed.ConsumedAt == nil {
		return false, nil
	}
	return s.now().Sub(*confirmed.ConsumedAt) <= s.takeoverGrace, nil
}

// confirmOpenChallenge verifies code against the open challenge for the pair
// and consumes it. The attempt counter is incremented before the comparison,
// so the cap holds even when the final allowed attempt carries the right code.
func (s *Service) confirmOpenChallenge(ctx context.Context, userID int64, deviceID, code string) error {
	challenge, err := s.challenges.LatestUnconsumed(ctx, userID, deviceID)
	if err != nil {
		return err
	}
	if challenge == nil || !challenge.Open(s.now()) {
		return ErrOTPNotFound
	}
	attempts, err := s.challenges.IncrementAttempts(ctx, challenge.ID)
	if err != nil {
		return err
	}
	if attempts > s.otpMaxAttempts {
		return ErrTooManyAttempts
	}
	if !otp.CodeEqual(code, challenge.CodeSalt, challenge.CodeHash) {
		return ErrInvalidOTP
	}
	consumed, err := s.challenges.Consume(ctx, challenge.ID)
	if err != nil {
		return err
	}
	if !consumed {
		// Lost a race with a concurrent confirm for the same challenge.
		return ErrOTPNotFound
	}
	return nil
}
