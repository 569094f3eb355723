package parts

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

// Handler exposes administrative inventory endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
}

// List returns an admin page of parts with filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "parts service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultPerPage, h.MaxPerPage)
	q := r.URL.Query()
	arg := db.ListPartsParams{
		Query:       optionalString(q.Get("q")),
		Make:        optionalString(q.Get("make")),
		Model:       optionalString(q.Get("model")),
		Category:    optionalString(q.Get("category")),
		VIN:         optionalString(q.Get("vin")),
		Sort:        q.Get("sort"),
		LimitValue:  int32(perPage),
		OffsetValue: int32(common.Offset(page, perPage)),
	}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "year must be an integer", nil)
			return
		}
		arg.Year = &year
	}
	if v := strings.TrimSpace(q.Get("inStock")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "inStock must be true or false", nil)
			return
		}
		arg.InStock = &b
	}
	items, total, err := h.Svc.List(r.Context(), arg)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if items == nil {
		items = []db.Part{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get returns one part by id.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "partId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	part, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, part)
}

// Create inserts a new part.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "parts service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	part, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, part)
}

// Update replaces an existing part.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "partId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	part, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, part)
}

// Delete removes a part.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "partId"))
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

// BulkAdjust shifts base prices across a selection of inventory.
func (h *Handler) BulkAdjust(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "parts service not configured", nil)
		return
	}
	var in BulkAdjustInput
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Svc.BulkAdjustPrices(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, result)
}
