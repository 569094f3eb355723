package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/atlasparts/backend-parts/internal/analytics"
	"github.com/atlasparts/backend-parts/internal/db"
)

type stubQueries struct {
	viewCalls      int
	topCalls       int
	inventoryCalls int
	recorded       []string
}

func (s *stubQueries) InsertPageView(ctx context.Context, path string, partID *string, visitorIP string) error {
	s.recorded = append(s.recorded, path)
	return nil
}

func (s *stubQueries) PageViewsByDay(ctx context.Context, from, to time.Time) ([]db.PageViewsByDayRow, error) {
	s.viewCalls++
	return []db.PageViewsByDayRow{{Day: from, Views: 12}}, nil
}

func (s *stubQueries) TopViewedParts(ctx context.Context, from time.Time, limit int32) ([]db.TopPartRow, error) {
	s.topCalls++
	return []db.TopPartRow{{PartID: "part-1", Title: "Alternator", Views: 9}}, nil
}

func (s *stubQueries) InventoryTotals(ctx context.Context) (db.InventoryTotalsRow, error) {
	s.inventoryCalls++
	return db.InventoryTotalsRow{PartCount: 40, ItemCount: 120, InStockCount: 35}, nil
}

func newCachedService(t *testing.T, q *stubQueries) *analytics.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return &analytics.Service{Q: q, R: rdb, TTL: time.Minute, DefaultRange: 30}
}

func TestViewsByDayCached(t *testing.T) {
	queries := &stubQueries{}
	svc := newCachedService(t, queries)
	from := time.Now().Add(-24 * time.Hour).Truncate(24 * time.Hour)
	to := time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour)
	if _, err := svc.ViewsByDay(context.Background(), from, to); err != nil {
		t.Fatalf("first call: %v", err)
	}
	rows, err := svc.ViewsByDay(context.Background(), from, to)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.viewCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.viewCalls)
	}
	if len(rows) != 1 || rows[0].Views != 12 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestTopPartsCachedPerWindow(t *testing.T) {
	queries := &stubQueries{}
	svc := newCachedService(t, queries)
	if _, err := svc.TopParts(context.Background(), 7, 10); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := svc.TopParts(context.Background(), 7, 10); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.topCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.topCalls)
	}
	// A different window is a different cache entry.
	if _, err := svc.TopParts(context.Background(), 30, 10); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if queries.topCalls != 2 {
		t.Fatalf("expected 2 DB calls, got %d", queries.topCalls)
	}
}

func TestInventoryCached(t *testing.T) {
	queries := &stubQueries{}
	svc := newCachedService(t, queries)
	if _, err := svc.Inventory(context.Background()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	row, err := svc.Inventory(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if queries.inventoryCalls != 1 {
		t.Fatalf("expected 1 DB call, got %d", queries.inventoryCalls)
	}
	if row.PartCount != 40 || row.InStockCount != 35 {
		t.Fatalf("unexpected totals: %+v", row)
	}
}

func TestRecordViewWithoutRedis(t *testing.T) {
	queries := &stubQueries{}
	svc := &analytics.Service{Q: queries}
	if err := svc.RecordView(context.Background(), "/parts/part-1", nil, "203.0.113.9"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(queries.recorded) != 1 || queries.recorded[0] != "/parts/part-1" {
		t.Fatalf("unexpected recorded views: %v", queries.recorded)
	}
}
