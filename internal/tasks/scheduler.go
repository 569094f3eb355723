package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"
)

// Cron specs for the recurring jobs. Prune runs after the nightly rollup
// so a slow prune never delays the report.
const (
	rollupSpec = "15 0 * * *"
	pruneSpec  = "45 3 * * *"
)

// NewScheduler registers the recurring jobs on an asynq scheduler.
func NewScheduler(redisOpt asynq.RedisConnOpt, retentionDays int) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, nil)

	rollup, err := NewExpenseRollupTask(0, 0)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(rollupSpec, rollup); err != nil {
		return nil, fmt.Errorf("tasks: register rollup: %w", err)
	}

	prune, err := NewPrunePageViewsTask(retentionDays)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(pruneSpec, prune); err != nil {
		return nil, fmt.Errorf("tasks: register prune: %w", err)
	}

	return scheduler, nil
}
