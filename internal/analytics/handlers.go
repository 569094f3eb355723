package analytics

import (
	"net/http"
	"strings"
	"time"

	"github.com/atlasparts/backend-parts/internal/common"
)

// Handler exposes the public view-recording endpoint and admin dashboards.
type Handler struct {
	Svc *Service
}

type recordViewRequest struct {
	Path   string  `json:"path"`
	PartID *string `json:"part_id"`
}

// Record handles POST /api/v1/track, storing one storefront impression.
func (h *Handler) Record(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	var req recordViewRequest
	if err := common.DecodeBody(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	req.Path = strings.TrimSpace(req.Path)
	if req.Path == "" || len(req.Path) > 500 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "path is required", nil)
		return
	}
	if req.PartID != nil && strings.TrimSpace(*req.PartID) == "" {
		req.PartID = nil
	}
	if err := h.Svc.RecordView(r.Context(), req.Path, req.PartID, common.ClientIP(r)); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", "failed to record view", nil)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{"recorded": true}})
}

// ViewsByDay returns daily view counts for the requested range.
func (h *Handler) ViewsByDay(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	query := r.URL.Query()
	now := h.Svc.now()
	var from, to time.Time
	if fromStr, toStr := query.Get("from"), query.Get("to"); fromStr != "" && toStr != "" {
		var err error
		from, err = time.Parse(time.RFC3339, fromStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid from date", nil)
			return
		}
		to, err = time.Parse(time.RFC3339, toStr)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid to date", nil)
			return
		}
	} else {
		days := h.Svc.DefaultRange
		if days <= 0 {
			days = 30
		}
		if raw := query.Get("days"); raw != "" {
			if parsed := common.AtoiDefault(raw, days); parsed > 0 {
				days = parsed
			}
		}
		to = now
		from = to.AddDate(0, 0, -days)
	}
	if !from.Before(to) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must be before to", nil)
		return
	}
	rows, err := h.Svc.ViewsByDay(r.Context(), from, to)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// TopParts returns the most viewed parts.
func (h *Handler) TopParts(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	q := r.URL.Query()
	days := common.AtoiDefault(q.Get("days"), 0)
	limit := common.AtoiDefault(q.Get("limit"), 10)
	rows, err := h.Svc.TopParts(r.Context(), days, int32(limit))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, rows)
}

// Inventory returns catalogue-wide stock totals.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_NOT_CONFIGURED", "analytics service not configured", nil)
		return
	}
	row, err := h.Svc.Inventory(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "ANALYTICS_ERROR", err.Error(), nil)
		return
	}
	common.Data(w, http.StatusOK, row)
}
