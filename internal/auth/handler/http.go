// Package handler exposes the authentication core over HTTP.
package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"safeday/backend/internal/auth/service"
	"safeday/backend/internal/devotp"
	"safeday/backend/internal/httpx"
	"safeday/backend/internal/metrics"
	"safeday/backend/internal/server/middleware"
	userrepo "safeday/backend/internal/user/repository"
)

// Handler serves the authentication endpoints.
type Handler struct {
	auth     *service.Service
	devCodes devotp.Store // nil outside dev OTP mode
	log      zerolog.Logger
}

// New returns an auth Handler. devCodes may be nil; then GET /dev/otp is not
// mounted.
func New(auth *service.Service, devCodes devotp.Store, log zerolog.Logger) *Handler {
	return &Handler{auth: auth, devCodes: devCodes, log: log}
}

type credentialsBody struct {
	Name         string `json:"name"`
	Password     string `json:"password"`
	SiteID       int64  `json:"site_id"`
	DepartmentID int64  `json:"department_id"`
	DeviceID     string `json:"device_id"`
}

func (b *credentialsBody) validate() string {
	switch {
	case b.Name == "":
		return "name is required"
	case b.Password == "":
		return "password is required"
	case b.SiteID == 0:
		return "site_id is required"
	case b.DepartmentID == 0:
		return "department_id is required"
	case b.DeviceID == "":
		return "device_id is required"
	}
	return ""
}

func (b *credentialsBody) credentials() service.Credentials {
	return service.Credentials{
		Name:         b.Name,
		Password:     b.Password,
		SiteID:       b.SiteID,
		DepartmentID: b.DepartmentID,
	}
}

type loginBody struct {
	credentialsBody
	PushToken string `json:"push_token"`
	OTPCode   string `json:"otp_code"`
	Force     bool   `json:"force"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	res, err := h.auth.Login(r.Context(), service.LoginInput{
		Credentials: body.credentials(),
		DeviceID:    body.DeviceID,
		PushToken:   body.PushToken,
		OTPCode:     body.OTPCode,
		Force:       body.Force,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			metrics.Logins.WithLabelValues("invalid_credential").Inc()
			httpx.Error(w, http.StatusUnauthorized, "invalid_credential", "name, site, department, or password is wrong")
		case errors.Is(err, service.ErrDeviceConflict):
			metrics.Logins.WithLabelValues("conflict").Inc()
			httpx.Error(w, http.StatusConflict, "device_conflict", "an active session exists on another device")
		case errors.Is(err, service.ErrInvalidOTP):
			metrics.OTPChallenges.WithLabelValues("invalid_code").Inc()
			httpx.Error(w, http.StatusUnauthorized, "invalid_code", "passcode did not match")
		case errors.Is(err, service.ErrTooManyAttempts):
			metrics.OTPChallenges.WithLabelValues("too_many_attempts").Inc()
			httpx.Error(w, http.StatusTooManyRequests, "too_many_attempts", "passcode attempt limit reached, request a new code")
		case errors.Is(err, service.ErrOTPNotFound):
			httpx.Error(w, http.StatusNotFound, "challenge_not_found", "no open passcode challenge for this device")
		default:
			h.serverError(w, err, "login failed")
		}
		return
	}

	outcome := "success"
	if body.Force || body.OTPCode != "" {
		outcome = "takeover"
	}
	metrics.Logins.WithLabelValues(outcome).Inc()
	httpx.JSON(w, http.StatusOK, res)
}

// RequestOTP handles POST /auth/otp/request.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}

	res, err := h.auth.RequestChallenge(r.Context(), body.credentials(), body.DeviceID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.Error(w, http.StatusUnauthorized, "invalid_credential", "name, site, department, or password is wrong")
		case errors.Is(err, service.ErrNoConflict):
			httpx.Error(w, http.StatusBadRequest, "no_conflict", "no session on another device to take over")
		case errors.Is(err, service.ErrOTPTooSoon):
			metrics.OTPChallenges.WithLabelValues("too_soon").Inc()
			httpx.Error(w, http.StatusTooManyRequests, "too_soon", "wait before requesting another passcode")
		case errors.Is(err, service.ErrNoContactAddress):
			httpx.Error(w, http.StatusConflict, "no_contact_address", "no contact address on file, contact an administrator")
		default:
			h.serverError(w, err, "passcode request failed")
		}
		return
	}

	metrics.OTPChallenges.WithLabelValues("issued").Inc()
	httpx.JSON(w, http.StatusOK, res)
}

type confirmBody struct {
	credentialsBody
	Code string `json:"code"`
}

// ConfirmOTP handles POST /auth/otp/confirm.
func (h *Handler) ConfirmOTP(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if msg := body.validate(); msg != "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", msg)
		return
	}
	if body.Code == "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "code is required")
		return
	}

	err := h.auth.ConfirmChallenge(r.Context(), body.credentials(), body.DeviceID, body.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.Error(w, http.StatusUnauthorized, "invalid_credential", "name, site, department, or password is wrong")
		case errors.Is(err, service.ErrOTPNotFound):
			httpx.Error(w, http.StatusNotFound, "challenge_not_found", "no open passcode challenge for this device")
		case errors.Is(err, service.ErrTooManyAttempts):
			metrics.OTPChallenges.WithLabelValues("too_many_attempts").Inc()
			httpx.Error(w, http.StatusTooManyRequests, "too_many_attempts", "passcode attempt limit reached, request a new code")
		case errors.Is(err, service.ErrInvalidOTP):
			metrics.OTPChallenges.WithLabelValues("invalid_code").Inc()
			httpx.Error(w, http.StatusUnauthorized, "invalid_code", "passcode did not match")
		default:
			h.serverError(w, err, "passcode confirmation failed")
		}
		return
	}

	metrics.OTPChallenges.WithLabelValues("confirmed").Inc()
	httpx.JSON(w, http.StatusOK, map[string]bool{"confirmed": true})
}

// Logout handles POST /auth/logout. Requires the session middleware.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	if id == nil {
		httpx.Error(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return
	}
	if err := h.auth.Logout(r.Context(), id.User.ID, id.DeviceID, id.Token); err != nil {
		h.serverError(w, err, "logout failed")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"logged_out": true})
}

// Validate handles GET /auth/validate. The session middleware has already
// authenticated the caller; this just echoes the current identity so clients
// can restore state after a restart.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	if id == nil {
		httpx.Error(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return
	}
	httpx.JSON(w, http.StatusOK, id.User.Summary())
}

type changePasswordBody struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /auth/password. Ends every session of the
// caller on success; the client must log in again.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetIdentity(r.Context())
	if id == nil {
		httpx.Error(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return
	}
	var body changePasswordBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}
	if body.CurrentPassword == "" || body.NewPassword == "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "current_password and new_password are required")
		return
	}

	err := h.auth.ChangePassword(r.Context(), id.User.ID, id.DeviceID, body.CurrentPassword, body.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPasswordMismatch):
			httpx.Error(w, http.StatusUnauthorized, "password_mismatch", "current password is wrong")
		case errors.Is(err, service.ErrSamePassword):
			httpx.Error(w, http.StatusBadRequest, "same_password", "new password must differ from the current one")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.Error(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters")
		default:
			h.serverError(w, err, "password change failed")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"changed": true})
}

// DevOTP handles GET /dev/otp?challenge_id=. Mounted only in dev OTP mode.
func (h *Handler) DevOTP(w http.ResponseWriter, r *http.Request) {
	if h.devCodes == nil {
		httpx.Error(w, http.StatusNotFound, "not_found", "not available")
		return
	}
	challengeID := r.URL.Query().Get("challenge_id")
	if challengeID == "" {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "challenge_id is required")
		return
	}
	code, ok := h.devCodes.Get(r.Context(), challengeID)
	if !ok {
		httpx.Error(w, http.StatusNotFound, "not_found", "no open challenge with that id")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code})
}

func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, userrepo.ErrDataIntegrity) {
		h.log.Error().Err(err).Msg("natural key integrity fault")
	} else {
		h.log.Error().Err(err).Msg(msg)
	}
	httpx.Error(w, http.StatusInternalServerError, "internal", msg)
}
