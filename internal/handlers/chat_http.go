package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/services"
)

// SendMessageResponse confirms persistence; delivery to sockets is best-effort.
type SendMessageResponse struct {
	Success bool            `json:"success"`
	Message *models.Message `json:"message"`
}

// SendMessage handles POST /api/chat/send for finders and owners.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.SendMessageInput
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.svc.Chat.Send(r.Context(), req, currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, SendMessageResponse{Success: true, Message: msg})
}

// ChatHistory loads messages of a tracker, oldest first.
// Query params:
//
//	before (optional RFC3339 timestamp for pagination)
//	limit  (optional, default 50, max 100)
//
// X-Has-More reports whether older messages exist. Looking a tracker up by
// database id needs the owner's or an admin's token.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := int64(0)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil {
			limit = parsed
		}
	}

	var before *time.Time
	if bStr := r.URL.Query().Get("before"); bStr != "" {
		t, err := time.Parse(time.RFC3339, bStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC3339 timestamp")
			return
		}
		before = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msgs, hasMore, err := h.svc.Chat.History(ctx, chi.URLParam(r, "trackerId"), currentUser(r), before, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("X-Has-More", strconv.FormatBool(hasMore))
	writeJSON(w, http.StatusOK, msgs)
}
