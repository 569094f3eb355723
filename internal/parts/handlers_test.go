package parts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/atlasparts/backend-parts/internal/db"
)

// newPartsRouter mounts the handler with the same placeholders the server
// registers, so requests resolve ids exactly as they do in production.
func newPartsRouter(q *stubQueries) *chi.Mux {
	svc, _ := newService(q)
	h := &Handler{Svc: svc, DefaultPerPage: 20, MaxPerPage: 100}
	r := chi.NewRouter()
	r.Route("/api/v1/admin/parts", func(p chi.Router) {
		p.Get("/", h.List)
		p.Post("/", h.Create)
		p.Get("/{partId}", h.Get)
		p.Put("/{partId}", h.Update)
		p.Delete("/{partId}", h.Delete)
	})
	return r
}

func TestHandlerGetResolvesPathID(t *testing.T) {
	router := newPartsRouter(&stubQueries{parts: []db.Part{{ID: "p1", Title: "Alternator"}}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/parts/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data db.Part `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != "p1" || resp.Data.Title != "Alternator" {
		t.Fatalf("unexpected part: %+v", resp.Data)
	}
}

func TestHandlerGetUnknownPart(t *testing.T) {
	router := newPartsRouter(&stubQueries{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/parts/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandlerUpdateResolvesPathID(t *testing.T) {
	q := &stubQueries{parts: []db.Part{{ID: "p1", Title: "Alternator", Price: 120}}}
	router := newPartsRouter(q)

	body := `{"title":"Rebuilt Alternator","make":"Toyota","model":"Camry","year":2007,"category":"electrical","price":150}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/parts/p1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data db.Part `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Title != "Rebuilt Alternator" {
		t.Fatalf("title not updated: %+v", resp.Data)
	}
}

func TestHandlerDeleteResolvesPathID(t *testing.T) {
	router := newPartsRouter(&stubQueries{parts: []db.Part{{ID: "p1"}}})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/parts/p1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data struct {
			Deleted bool `json:"deleted"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Data.Deleted {
		t.Fatalf("expected deleted flag, got %s", rec.Body.String())
	}
}
