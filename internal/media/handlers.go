package media

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
)

// maxUploadBytes caps photo uploads at 10 MiB.
const maxUploadBytes = 10 << 20

// Handler exposes photo endpoints over HTTP.
type Handler struct {
	Svc *Service
}

// Upload handles POST /admin/parts/{partId}/photos with a multipart
// "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		common.WriteError(w, common.BadRequest("file", "multipart upload too large or malformed", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		common.WriteError(w, common.BadRequest("file", "missing file field", err))
		return
	}
	defer file.Close()

	photo, err := h.Svc.UploadPartPhoto(r.Context(), chi.URLParam(r, "partId"), header.Header.Get("Content-Type"), file)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, photo)
}

// Presign handles GET /media/presign?key=... for the storefront to load
// photos referenced by catalog responses.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	photo, err := h.Svc.PresignPhoto(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, photo)
}

// Delete handles DELETE /admin/parts/{partId}/photos?key=...
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeletePartPhoto(r.Context(), chi.URLParam(r, "partId"), r.URL.Query().Get("key")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
