package tasks

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/expenses"
	"github.com/atlasparts/backend-parts/internal/lock"
)

type stubQueries struct {
	pruneCutoff  *time.Time
	prunedCount  int64
	settings     map[string]string
	rangeResults []db.Expense
}

func newStubQueries() *stubQueries {
	return &stubQueries{settings: map[string]string{}}
}

func (s *stubQueries) PrunePageViews(_ context.Context, cutoff time.Time) (int64, error) {
	s.pruneCutoff = &cutoff
	return s.prunedCount, nil
}

func (s *stubQueries) UpsertSetting(_ context.Context, key, value string) (db.Setting, error) {
	s.settings[key] = value
	return db.Setting{Key: key, Value: value}, nil
}

func (s *stubQueries) ListExpenses(_ context.Context, _, _ int32) ([]db.Expense, error) {
	return nil, nil
}

func (s *stubQueries) CountExpenses(_ context.Context) (int64, error) { return 0, nil }

func (s *stubQueries) ListExpensesTouchingRange(_ context.Context, _, _ time.Time) ([]db.Expense, error) {
	return s.rangeResults, nil
}

func (s *stubQueries) CreateExpense(_ context.Context, _ db.CreateExpenseParams) (db.Expense, error) {
	return db.Expense{}, nil
}

func (s *stubQueries) UpdateExpense(_ context.Context, _ db.UpdateExpenseParams) (db.Expense, error) {
	return db.Expense{}, nil
}

func (s *stubQueries) DeleteExpense(_ context.Context, _ string) (int64, error) { return 0, nil }

func TestHandlePrunePageViewsUsesRetention(t *testing.T) {
	q := newStubQueries()
	q.prunedCount = 42
	now := time.Date(2024, 7, 15, 4, 0, 0, 0, time.UTC)
	h := &Handler{Q: q, RetentionDays: 180, Now: func() time.Time { return now }}

	task, err := NewPrunePageViewsTask(0)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.HandlePrunePageViews(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if q.pruneCutoff == nil {
		t.Fatal("expected prune to be called")
	}
	want := now.AddDate(0, 0, -180)
	if !q.pruneCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, *q.pruneCutoff)
	}
}

func TestHandlePrunePageViewsPayloadOverridesRetention(t *testing.T) {
	q := newStubQueries()
	now := time.Date(2024, 7, 15, 4, 0, 0, 0, time.UTC)
	h := &Handler{Q: q, RetentionDays: 180, Now: func() time.Time { return now }}

	task, err := NewPrunePageViewsTask(30)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.HandlePrunePageViews(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	want := now.AddDate(0, 0, -30)
	if q.pruneCutoff == nil || !q.pruneCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, q.pruneCutoff)
	}
}

func TestHandleExpenseRollupStoresReport(t *testing.T) {
	q := newStubQueries()
	q.rangeResults = []db.Expense{
		{ID: "e1", Label: "Rent", Category: "facilities", Amount: 1200,
			IncurredOn: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	svc := &expenses.Service{Q: q, MaxRangeDays: 366}
	h := &Handler{Q: q, Expenses: svc}

	task, err := NewExpenseRollupTask(2024, 6)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.HandleExpenseRollup(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, ok := q.settings["expenses.rollup.2024-06"]
	if !ok {
		t.Fatalf("expected rollup stored, got keys %v", q.settings)
	}
	var report expenses.Report
	if err := json.Unmarshal([]byte(stored), &report); err != nil {
		t.Fatalf("unmarshal stored report: %v", err)
	}
	if report.Total != 1200 {
		t.Fatalf("expected total 1200, got %v", report.Total)
	}
}

func TestHandleExpenseRollupDefaultsToCurrentMonth(t *testing.T) {
	q := newStubQueries()
	now := time.Date(2024, 8, 20, 0, 15, 0, 0, time.UTC)
	svc := &expenses.Service{Q: q, MaxRangeDays: 366}
	h := &Handler{Q: q, Expenses: svc, Now: func() time.Time { return now }}

	task, err := NewExpenseRollupTask(0, 0)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.HandleExpenseRollup(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := q.settings["expenses.rollup.2024-08"]; !ok {
		t.Fatalf("expected current month key, got %v", q.settings)
	}
}

func TestHandleExpenseRollupHoldsLock(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := newStubQueries()
	q.rangeResults = []db.Expense{
		{ID: "e1", Label: "Rent", Category: "facilities", Amount: 500,
			IncurredOn: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	svc := &expenses.Service{Q: q, MaxRangeDays: 366}
	h := &Handler{Q: q, Expenses: svc, Lock: &lock.Locker{R: client, RetryBackoff: time.Millisecond}}

	task, err := NewExpenseRollupTask(2024, 6)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.HandleExpenseRollup(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, ok := q.settings["expenses.rollup.2024-06"]; !ok {
		t.Fatalf("expected rollup stored, got keys %v", q.settings)
	}
	if mr.Exists("lock:expenses.rollup.2024-06") {
		t.Fatal("expected lock released after rollup")
	}
}
