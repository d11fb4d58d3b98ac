// Package memory implements the bounded per-user conversation window.
// Each user keeps at most the configured number of (prompt, response)
// exchanges; the oldest are evicted as new ones arrive.
package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ndrwnv/zubrilabot/internal/database"
)

// Exchange is one stored prompt/response pair.
type Exchange struct {
	Prompt    string
	Response  string
	CreatedAt time.Time
}

// Manager owns the conversation window for every user. Two consumption
// patterns exist: Recent serves the LLM context window in chronological
// order, History serves display newest-first. Both derive from the same
// stored (created_at, id) order.
type Manager struct {
	store  database.Store
	window int
	logger *slog.Logger
}

// NewManager creates a memory Manager with the given retention window.
func NewManager(store database.Store, window int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store:  store,
		window: window,
		logger: logger.With("component", "memory_manager"),
	}
}

// Remember appends an exchange and evicts entries beyond the window in the
// same storage transaction, so no reader ever observes more than the window.
func (m *Manager) Remember(ctx context.Context, userID int64, prompt, response string) error {
	entry := &database.MemoryEntry{
		UserID:    userID,
		Prompt:    prompt,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.store.InsertMemoryEntry(ctx, entry, m.window); err != nil {
		return fmt.Errorf("remember failed: %w", err)
	}

	m.logger.DebugContext(ctx, "Exchange remembered", "user_id", userID, "entry_id", entry.ID)
	return nil
}

// Recent returns up to n of the newest exchanges in chronological order
// (oldest of the recent n first), as the LLM context window expects.
func (m *Manager) Recent(ctx context.Context, userID int64, n int) ([]Exchange, error) {
	entries, err := m.store.GetMemoryEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recall failed: %w", err)
	}

	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}

	return toExchanges(entries), nil
}

// History returns the full window newest-first, for display and admin
// inspection.
func (m *Manager) History(ctx context.Context, userID int64) ([]Exchange, error) {
	entries, err := m.store.GetMemoryEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recall failed: %w", err)
	}

	exchanges := toExchanges(entries)
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}

// Forget deletes the user's entire window. Idempotent.
func (m *Manager) Forget(ctx context.Context, userID int64) error {
	if err := m.store.DeleteMemoryEntries(ctx, userID); err != nil {
		return fmt.Errorf("forget failed: %w", err)
	}

	m.logger.DebugContext(ctx, "Memory cleared", "user_id", userID)
	return nil
}

func toExchanges(entries []database.MemoryEntry) []Exchange {
	exchanges := make([]Exchange, 0, len(entries))
	for _, e := range entries {
		exchanges = append(exchanges, Exchange{
			Prompt:    e.Prompt,
			Response:  e.Response,
			CreatedAt: e.CreatedAt,
		})
	}
	return exchanges
}
