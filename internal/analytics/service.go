package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/obs"
)

// Querier defines the database access required for analytics operations.
type Querier interface {
	InsertPageView(ctx context.Context, path string, partID *string, visitorIP string) error
	PageViewsByDay(ctx context.Context, from, to time.Time) ([]db.PageViewsByDayRow, error)
	TopViewedParts(ctx context.Context, from time.Time, limit int32) ([]db.TopPartRow, error)
	InventoryTotals(ctx context.Context) (db.InventoryTotalsRow, error)
}

// Service records storefront impressions and serves cached dashboard reads.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// RecordView stores one page impression. Recording is best-effort from the
// caller's point of view; failures surface so handlers can decide.
func (s *Service) RecordView(ctx context.Context, path string, partID *string, visitorIP string) error {
	if s == nil || s.Q == nil {
		return fmt.Errorf("analytics service not configured")
	}
	if err := s.Q.InsertPageView(ctx, path, partID, visitorIP); err != nil {
		return fmt.Errorf("insert page view: %w", err)
	}
	if obs.PageViewsTotal != nil {
		obs.PageViewsTotal.Inc()
	}
	return nil
}

// ViewsByDay returns daily view counts between from (inclusive) and to
// (exclusive), cached per window.
func (s *Service) ViewsByDay(ctx context.Context, from, to time.Time) ([]db.PageViewsByDayRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "views", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if rows, ok := getCached[[]db.PageViewsByDayRow](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.PageViewsByDay(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// TopParts returns the most viewed parts over the trailing window.
func (s *Service) TopParts(ctx context.Context, days int, limit int32) ([]db.TopPartRow, error) {
	if s == nil || s.Q == nil {
		return nil, fmt.Errorf("analytics service not configured")
	}
	if days <= 0 {
		days = s.DefaultRange
	}
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 10
	}
	key := cacheKey("an", "top", days, limit)
	if rows, ok := getCached[[]db.TopPartRow](ctx, s, key); ok {
		return rows, nil
	}
	rows, err := s.Q.TopViewedParts(ctx, s.now().AddDate(0, 0, -days), limit)
	if err != nil {
		return nil, err
	}
	s.store(ctx, key, rows)
	return rows, nil
}

// Inventory returns catalogue-wide stock totals.
func (s *Service) Inventory(ctx context.Context) (db.InventoryTotalsRow, error) {
	if s == nil || s.Q == nil {
		return db.InventoryTotalsRow{}, fmt.Errorf("analytics service not configured")
	}
	key := cacheKey("an", "inventory")
	if row, ok := getCached[db.InventoryTotalsRow](ctx, s, key); ok {
		return row, nil
	}
	row, err := s.Q.InventoryTotals(ctx)
	if err != nil {
		return db.InventoryTotalsRow{}, err
	}
	s.store(ctx, key, row)
	return row, nil
}

func getCached[T any](ctx context.Context, s *Service, key string) (T, bool) {
	var zero T
	if s.R == nil || s.TTL <= 0 {
		return zero, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return zero, false
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, key string, value any) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
