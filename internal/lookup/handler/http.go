// Package handler serves the public site and department lists consumed by the
// login form.
package handler

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"safeday/backend/internal/httpx"
	"safeday/backend/internal/lookup/repository"
)

// Handler serves the lookup endpoints.
type Handler struct {
	repo repository.Repository
	log  zerolog.Logger
}

// New returns a lookup Handler.
func New(repo repository.Repository, log zerolog.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

// Sites handles GET /sites.
func (h *Handler) Sites(w http.ResponseWriter, r *http.Request) {
	sites, err := h.repo.ListSites(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("listing sites failed")
		httpx.Error(w, http.StatusInternalServerError, "internal", "could not load sites")
		return
	}
	httpx.JSON(w, http.StatusOK, sites)
}

// Departments handles GET /departments. An optional site_id query parameter
// limits the list to one site.
func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	var siteID int64
	if raw := r.URL.Query().Get("site_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "bad_request", "site_id must be an integer")
			return
		}
		siteID = parsed
	}
	departments, err := h.repo.ListDepartments(r.Context(), siteID)
	if err != nil {
		h.log.Error().Err(err).Msg("listing departments failed")
		httpx.Error(w, http.StatusInternalServerError, "internal", "could not load departments")
		return
	}
	httpx.JSON(w, http.StatusOK, departments)
}
