package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ooovooo/backend/internal/middleware"
	"github.com/ooovooo/backend/internal/models"
	"github.com/ooovooo/backend/internal/repository"
	"github.com/ooovooo/backend/internal/services"
	"go.uber.org/zap"
)

// maxJSONBody caps decoded request bodies.
const maxJSONBody = 1 << 20

// Services groups everything the HTTP layer calls into.
type Services struct {
	Auth     *services.AuthService
	Users    *services.UserService
	Trackers *services.TrackerService
	Public   *services.PublicService
	Logs     *services.LogService
	Chat     *services.ChatService
	Orders   *services.OrderService
	Skins    *services.SkinService
	Contacts *services.ContactService
	Hub      *services.ChatHub
}

type Handler struct {
	svc      Services
	log      *zap.Logger
	validate *validator.Validate
}

func New(svc Services, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log, validate: validator.New()}
}

// Response is the {success, message} envelope used by mutating routes.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

// fail maps service errors onto status codes. Anything unrecognised is
// logged and hidden behind a generic 500.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, services.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "Webhook signature verification failed")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Server error")
	}
}

// decode reads a JSON body and runs struct validation when the target
// carries validate tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, validationMessage(verrs[0]))
			return false
		}
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

func currentUser(r *http.Request) *models.User {
	return middleware.UserFromContext(r.Context())
}
