package settings

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
)

// Handler exposes settings endpoints over HTTP.
type Handler struct {
	Svc *Service
}

// List handles GET /admin/settings.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, out)
}

// Get handles GET /admin/settings/{key}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.Svc.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, setting)
}

// Set handles PUT /admin/settings.
func (h *Handler) Set(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	setting, err := h.Svc.Set(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, setting)
}

// Delete handles DELETE /admin/settings/{key}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Backup handles GET /admin/backup. The snapshot is served as a download
// so the browser saves it instead of rendering it.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Svc.Backup(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="backup-`+snap.GeneratedAt.Format("2006-01-02")+`.json"`)
	common.JSON(w, http.StatusOK, snap)
}
