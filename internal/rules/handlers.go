package rules

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
)

// Handler exposes administrative price rule endpoints.
type Handler struct {
	Svc *Service
}

// List returns every stored rule.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rules service not configured", nil)
		return
	}
	items, err := h.Svc.List(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, items)
}

// Get returns one rule by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "ruleId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	rule, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rule)
}

// Create inserts a new price rule.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rules service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	rule, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, rule)
}

// Update replaces an existing price rule.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "ruleId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	rule, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, rule)
}

// Delete removes a price rule.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "ruleId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// Preview dry-runs the active rule set against one part.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	partID := strings.TrimSpace(chi.URLParam(r, "partId"))
	if partID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "partId is required", nil)
		return
	}
	preview, err := h.Svc.PreviewPart(r.Context(), partID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, preview)
}
