package handlers

import (
	"io"
	"net/http"

	"github.com/ooovooo/backend/internal/services"
)

// ListSchemes returns the skin catalog.
func (h *Handler) ListSchemes(w http.ResponseWriter, r *http.Request) {
	designs, err := h.svc.Skins.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, designs)
}

// UploadScheme handles multipart skin uploads: id, name, category and a PNG
// in the "image" field.
func (h *Handler) UploadScheme(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxSkinUploadBytes+1<<20)
	if err := r.ParseMultipartForm(services.MaxSkinUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxSkinUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read image")
		return
	}

	design, err := h.svc.Skins.Upload(r.Context(), services.UploadSkinInput{
		ID:       r.FormValue("id"),
		Name:     r.FormValue("name"),
		Category: r.FormValue("category"),
		Data:     data,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Skin saved", "skin": design})
}
