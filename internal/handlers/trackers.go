package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ooovooo/backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AddSkinRequest struct {
	StyleID string `json:"styleId" validate:"required"`
	OrderID string `json:"orderId"`
}

func (h *Handler) CreateTracker(w http.ResponseWriter, r *http.Request) {
	var req services.CreateTrackerInput
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.Trackers.Create(r.Context(), currentUser(r).ID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "tracker": t})
}

func (h *Handler) MyTrackers(w http.ResponseWriter, r *http.Request) {
	trackers, err := h.svc.Trackers.ListMine(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trackers)
}

func (h *Handler) UpdateTracker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	var req services.UpdateTrackerInput
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.Trackers.Update(r.Context(), currentUser(r).ID, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tracker": t})
}

func (h *Handler) DeleteTracker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Trackers.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Deleted"})
}

// AddSkin is the manual grant used by the shop after a successful payment.
func (h *Handler) AddSkin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	var req AddSkinRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := h.svc.Trackers.AddSkin(r.Context(), currentUser(r).ID, id, req.StyleID, req.OrderID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "tracker": t})
}

// TrackerLogs lists every log of the caller's trackers.
func (h *Handler) TrackerLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Logs.ListOwned(r.Context(), currentUser(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *Handler) AdminTrackerLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.svc.Logs.ListAll(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func pathObjectID(w http.ResponseWriter, r *http.Request, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return primitive.NilObjectID, false
	}
	return id, true
}
