package expenses

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

// Handler exposes administrative expense endpoints.
type Handler struct {
	Svc            *Service
	DefaultPerPage int
	MaxPerPage     int
}

// List returns a page of expenses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "expenses service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.DefaultPerPage, h.MaxPerPage)
	items, total, err := h.Svc.List(r.Context(), int32(perPage), int32(common.Offset(page, perPage)))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if items == nil {
		items = []db.Expense{}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Create inserts a new expense.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "expenses service not configured", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	expense, err := h.Svc.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, expense)
}

// Update replaces an existing expense.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "expenseId"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required", nil)
		return
	}
	var in Input
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	expense, err := h.Svc.Update(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, expense)
}

// Delete removes an expense.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "expenseId"))
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

// MonthlyReport handles GET /expenses/report?year=2026&month=8, defaulting
// to the current month.
func (h *Handler) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "expenses service not configured", nil)
		return
	}
	now := time.Now().UTC()
	year := now.Year()
	month := now.Month()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 2000 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "year must be a valid year", nil)
			return
		}
		year = parsed
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 12 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "month must be 1-12", nil)
			return
		}
		month = time.Month(parsed)
	}
	report, err := h.Svc.MonthlyReport(r.Context(), year, month)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, report)
}
