package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/atlasparts/backend-parts/internal/db"
	"github.com/atlasparts/backend-parts/internal/expenses"
	"github.com/atlasparts/backend-parts/internal/lock"
)

// RollupKeyPrefix namespaces stored rollup reports in site settings.
const RollupKeyPrefix = "expenses.rollup."

// Querier is the subset of db.Queries the background handlers need.
type Querier interface {
	PrunePageViews(ctx context.Context, cutoff time.Time) (int64, error)
	UpsertSetting(ctx context.Context, key, value string) (db.Setting, error)
}

// Handler processes background tasks. When Lock is set the expense rollup
// runs under a distributed lock so a scheduled run and a manually enqueued
// rebuild never overlap.
type Handler struct {
	Q             Querier
	Expenses      *expenses.Service
	RetentionDays int
	Lock          *lock.Locker
	Logger        *zerolog.Logger
	Now           func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func (h *Handler) log() *zerolog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	nop := zerolog.Nop()
	return &nop
}

// Mux routes task types to their handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypePrunePageViews, h.HandlePrunePageViews)
	mux.HandleFunc(TypeExpenseRollup, h.HandleExpenseRollup)
	return mux
}

// HandlePrunePageViews deletes page views older than the retention window.
func (h *Handler) HandlePrunePageViews(ctx context.Context, t *asynq.Task) error {
	var payload PrunePageViewsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("tasks: unmarshal prune payload: %w", err)
		}
	}
	days := payload.RetentionDays
	if days <= 0 {
		days = h.RetentionDays
	}
	if days <= 0 {
		return fmt.Errorf("tasks: page view retention not configured")
	}

	cutoff := h.now().AddDate(0, 0, -days)
	pruned, err := h.Q.PrunePageViews(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("tasks: prune page views: %w", err)
	}
	h.log().Info().
		Int64("pruned", pruned).
		Time("cutoff", cutoff).
		Msg("pruned page views")
	return nil
}

// HandleExpenseRollup computes a month's expense report and stores the
// JSON under site settings so the dashboard reads it without recomputing.
func (h *Handler) HandleExpenseRollup(ctx context.Context, t *asynq.Task) error {
	var payload ExpenseRollupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("tasks: unmarshal rollup payload: %w", err)
		}
	}
	year, month := payload.Year, time.Month(payload.Month)
	if year == 0 || payload.Month < 1 || payload.Month > 12 {
		now := h.now()
		year, month = now.Year(), now.Month()
	}

	if h.Lock != nil {
		key := fmt.Sprintf("lock:%s%d-%02d", RollupKeyPrefix, year, month)
		return h.Lock.WithLock(ctx, key, time.Minute, func(ctx context.Context) error {
			return h.rollup(ctx, year, month)
		})
	}
	return h.rollup(ctx, year, month)
}

func (h *Handler) rollup(ctx context.Context, year int, month time.Month) error {
	report, err := h.Expenses.MonthlyReport(ctx, year, month)
	if err != nil {
		return fmt.Errorf("tasks: expense rollup %d-%02d: %w", year, month, err)
	}
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("tasks: marshal rollup report: %w", err)
	}

	key := fmt.Sprintf("%s%d-%02d", RollupKeyPrefix, year, month)
	if _, err := h.Q.UpsertSetting(ctx, key, string(encoded)); err != nil {
		return fmt.Errorf("tasks: store rollup report: %w", err)
	}
	h.log().Info().
		Str("key", key).
		Float64("total", report.Total).
		Msg("stored expense rollup")
	return nil
}
