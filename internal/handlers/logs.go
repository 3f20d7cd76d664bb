package handlers

import (
	"net/http"

	"github.com/ooovooo/backend/internal/services"
)

// LogPublic stores a finder's GPS fix.
func (h *Handler) LogPublic(w http.ResponseWriter, r *http.Request) {
	var req services.PublicLogInput
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Logs.RecordPublic(r.Context(), req, r.UserAgent()); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true})
}

// ListLogs returns GPS logs: all for admins, the caller's own otherwise.
func (h *Handler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Logs.ListFor(r.Context(), currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}
