package tasks

import (
	"context"
	"fmt"
	"time"
)

// newDailyStatsTask creates the task that logs an aggregate usage snapshot,
// intended to run once a day around midnight.
func newDailyStatsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_stats")

	return func(ctx context.Context) error {
		profiles, err := deps.Store.GetAllUserProfiles(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Daily stats collection failed", "error", err)
			return fmt.Errorf("daily stats failed: %w", err)
		}

		var messages, photos, documents int64
		activeToday := 0
		dayAgo := time.Now().UTC().Add(-24 * time.Hour)
		for _, p := range profiles {
			messages += p.MessageCount
			photos += p.PhotoCount
			documents += p.DocumentCount
			if p.LastSeen.After(dayAgo) {
				activeToday++
			}
		}

		premium, err := deps.Store.ListPremium(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Daily stats premium lookup failed", "error", err)
			return fmt.Errorf("daily stats failed: %w", err)
		}

		log.InfoContext(ctx, "Daily usage snapshot",
			"total_users", len(profiles),
			"active_last_24h", activeToday,
			"premium_users", len(premium),
			"total_messages", messages,
			"total_photos", photos,
			"total_documents", documents,
		)
		return nil
	}
}
