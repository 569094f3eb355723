package chat

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/common"
)

// Handler exposes chat endpoints over HTTP.
type Handler struct {
	Svc *Service
}

// OpenSession handles POST /chat/sessions.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var in OpenInput
	if r.ContentLength != 0 {
		if err := common.DecodeBody(r, &in); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	session, err := h.Svc.OpenSession(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, session)
}

// PostMessage handles POST /chat/sessions/{sessionId}/messages.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var in MessageInput
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	msg, err := h.Svc.PostMessage(r.Context(), chi.URLParam(r, "sessionId"), SenderVisitor, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, msg)
}

// Messages handles GET /chat/sessions/{sessionId}/messages. Pollers pass
// ?after=<RFC3339> to fetch only messages newer than the last one seen.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	var after *time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			common.WriteError(w, common.BadRequest("after", "after must be an RFC3339 timestamp", err))
			return
		}
		after = &t
	}
	messages, err := h.Svc.Messages(r.Context(), chi.URLParam(r, "sessionId"), after)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, messages)
}

// ListSessions handles GET /admin/chat/sessions.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20, 100)
	sessions, err := h.Svc.ListSessions(r.Context(), r.URL.Query().Get("status"), page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sessions)
}

// Reply handles POST /admin/chat/sessions/{sessionId}/reply.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var in MessageInput
	if err := common.DecodeBody(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	msg, err := h.Svc.PostMessage(r.Context(), chi.URLParam(r, "sessionId"), SenderAdmin, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, msg)
}

// CloseSession handles POST /admin/chat/sessions/{sessionId}/close.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.CloseSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]string{"status": StatusClosed})
}

// DeleteMessage handles DELETE /admin/chat/messages/{messageId}.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteMessage(r.Context(), chi.URLParam(r, "messageId")); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
