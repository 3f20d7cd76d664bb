package handlers

import (
	"net/http"

	"github.com/ooovooo/backend/internal/services"
)

type UpdateEmailRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Users.Get(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.ProfileUpdate
	if !h.decode(w, r, &req) {
		return
	}
	user, err := h.svc.Users.UpdateProfile(r.Context(), currentUser(r).ID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	var req UpdateEmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Users.UpdateEmail(r.Context(), currentUser(r).ID, req.NewEmail, req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Email updated"})
}

func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req UpdatePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.Users.UpdatePassword(r.Context(), currentUser(r).ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Password updated"})
}

// ListUsers is the admin view of every account.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
