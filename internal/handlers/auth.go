package handlers

import (
	"net/http"
	"strings"

	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/services"
)

// LoginRequest accepts either an email or a phone number as identifier.
type LoginRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password" validate:"required"`
}

// AuthResponse is the stored user plus a fresh token.
type AuthResponse struct {
	*models.User
	Token string `json:"token"`
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Auth.Register(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Registration successful"})
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.PhoneNumber)
	}
	user, token, err := h.svc.Auth.Login(r.Context(), identifier, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}
