package tasks

import (
	"context"
)

// ScheduledTaskFunc is the signature every scheduled task implements. The
// context comes from the scheduler and must be respected for cancellation.
type ScheduledTaskFunc func(ctx context.Context) error

// RegisterAllTasks builds the task map. The keys match the task names used
// in the scheduler section of the configuration.
func RegisterAllTasks(deps TaskDeps) map[string]ScheduledTaskFunc {
	tasks := map[string]ScheduledTaskFunc{
		"sql_maintenance": newSQLMaintenanceTask(deps),
		"session_sweep":   newSessionSweepTask(deps),
		"daily_stats":     newDailyStatsTask(deps),
	}

	deps.Logger.Info("Initialized scheduled tasks", "count", len(tasks))
	return tasks
}
