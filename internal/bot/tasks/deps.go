// Package tasks implements the scheduled background tasks: database
// maintenance, stale session cleanup, and the daily usage report.
package tasks

import (
	"log/slog"

	"github.com/ndrwnv/zubrilabot/internal/config"
	"github.com/ndrwnv/zubrilabot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
