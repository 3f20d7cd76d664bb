package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ooovooo/backend/internal/services"
)

type publicTrackerResponse struct {
	Success bool `json:"success"`
	*services.PublicProfile
}

// PublicTracker serves the scan page: GET /api/public/tracker/{code}?lang=.
func (h *Handler) PublicTracker(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Public.Lookup(r.Context(), chi.URLParam(r, "code"), r.URL.Query().Get("lang"), r.UserAgent())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, publicTrackerResponse{Success: true, PublicProfile: profile})
}
