package handlers

import (
	"net/http"

	"github.com/ooovooo/backend/internal/services"
)

// SubmitContact handles the public contact form.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req services.ContactInput
	if !h.decode(w, r, &req) {
		return
	}
	if _, err := h.svc.Contacts.Submit(r.Context(), req); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: "Message saved"})
}

// ListContacts is the admin inbox, newest first.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.svc.Contacts.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (h *Handler) MarkContactRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.Contacts.MarkRead(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathObjectID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Contacts.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Message deleted"})
}
