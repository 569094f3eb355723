package vehicles

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

// Handler exposes administrative donor vehicle endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
}

// List returns a page of vehicles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "vehicles service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultPerPage, h.MaxPerPage)
	items, total, err := h.Svc.List(r.Context(), int32(perPage), int32(common.Offset(page, perPage)))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if items == nil {
		items = []db.Vehicle{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get returns a vehicle and its parts by VIN.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	vin := strings.TrimSpace(chi.URLParam(r, "vin"))
	if vin == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "vin is required", nil)
		return
	}
	detail, err := h.Svc.Get(r.Context(), vin)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// Create inserts a new donor vehicle.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "vehicles service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	vehicle, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, vehicle)
}

// Update replaces a vehicle identified by VIN.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	vin := strings.TrimSpace(chi.URLParam(r, "vin"))
	if vin == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "vin is required", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	vehicle, err := h.Svc.Update(r.Context(), vin, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, vehicle)
}

// Delete removes a vehicle by VIN.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	vin := strings.TrimSpace(chi.URLParam(r, "vin"))
	if vin == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "vin is required", nil)
		return
	}
	if err := h.Svc.Delete(r.Context(), vin); err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"deleted": true}})
}

// Decode runs the external VIN decode and returns a prefilled intake payload.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	vin := strings.TrimSpace(chi.URLParam(r, "vin"))
	if vin == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "vin is required", nil)
		return
	}
	prefill, err := h.Svc.DecodePrefill(r.Context(), vin)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, prefill)
}
