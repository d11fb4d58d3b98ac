package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSessionSweepTask creates the task that clears session states whose
// owners walked away mid-flow. A swept user simply lands back in the idle
// state on their next message.
func newSessionSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "session_sweep")
	staleAfter := deps.Config.Session.StaleAfter

	return func(ctx context.Context) error {
		cutoff := time.Now().UTC().Add(-staleAfter)

		count, err := deps.Store.DeleteStaleSessionStates(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Session sweep failed", "error", err)
			return fmt.Errorf("session sweep failed: %w", err)
		}

		if count > 0 {
			log.InfoContext(ctx, "Swept stale session states", "count", count, "cutoff", cutoff)
		}
		return nil
	}
}
