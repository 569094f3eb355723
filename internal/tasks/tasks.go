package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypePrunePageViews = "analytics:prune_page_views"
	TypeExpenseRollup  = "expenses:monthly_rollup"
)

// PrunePageViewsPayload controls how far back page views are kept.
type PrunePageViewsPayload struct {
	RetentionDays int `json:"retention_days"`
}

// ExpenseRollupPayload names the month to roll up. A zero Year rolls up
// the month containing "now".
type ExpenseRollupPayload struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// NewPrunePageViewsTask builds the pruning task.
func NewPrunePageViewsTask(retentionDays int) (*asynq.Task, error) {
	payload, err := json.Marshal(PrunePageViewsPayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal prune payload: %w", err)
	}
	return asynq.NewTask(TypePrunePageViews, payload), nil
}

// NewExpenseRollupTask builds the monthly rollup task.
func NewExpenseRollupTask(year, month int) (*asynq.Task, error) {
	payload, err := json.Marshal(ExpenseRollupPayload{Year: year, Month: month})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal rollup payload: %w", err)
	}
	return asynq.NewTask(TypeExpenseRollup, payload), nil
}
