// Package quota implements the tier-aware daily request budget. Each user
// gets a rolling per-calendar-day allowance; admins bypass quota entirely
// and never produce a quota record.
package quota

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/tier"
)

// DateLayout is the calendar-day marker format stored in quota records.
const DateLayout = "2006-01-02"

// Manager computes remaining allowances and records usage. All storage
// errors propagate to the caller, which must deny the action on error.
type Manager struct {
	store  database.Store
	tiers  *tier.Registry
	logger *slog.Logger

	standardLimit int
	premiumLimit  int

	now func() time.Time
}

// NewManager creates a quota Manager with the given per-tier daily ceilings.
func NewManager(store database.Store, tiers *tier.Registry, standardLimit, premiumLimit int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store:         store,
		tiers:         tiers,
		logger:        logger.With("component", "quota_manager"),
		standardLimit: standardLimit,
		premiumLimit:  premiumLimit,
		now:           time.Now,
	}
}

// RemainingAllowance returns how many chargeable requests the user has left
// today. For admins it returns unlimited=true and no record is created or
// read. A stored record from a previous day counts as zero used; the reset
// is persisted lazily by the next RecordUsage call, not here.
func (m *Manager) RemainingAllowance(ctx context.Context, userID int64) (remaining int, unlimited bool, err error) {
	if m.tiers.IsAdmin(userID) {
		return 0, true, nil
	}

	ceiling, err := m.ceiling(ctx, userID)
	if err != nil {
		return 0, false, err
	}

	record, err := m.store.GetQuotaRecord(ctx, userID)
	if err != nil {
		return 0, false, fmt.Errorf("quota lookup failed: %w", err)
	}

	used := 0
	if record != nil && record.Date == m.today() {
		used = record.Count
	}

	remaining = ceiling - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, false, nil
}

// RecordUsage charges one request to the user's daily budget. It is a no-op
// for admins. A record from a previous day is reset to (today, 1); an
// up-to-date record is incremented. The increment is atomic per user, so
// concurrent calls never lose updates. The manager keeps counting past the
// ceiling without error; the ceiling comparison is the caller's job via
// RemainingAllowance.
func (m *Manager) RecordUsage(ctx context.Context, userID int64) error {
	if m.tiers.IsAdmin(userID) {
		m.logger.DebugContext(ctx, "Skipping usage recording for admin", "user_id", userID)
		return nil
	}

	if err := m.store.IncrementQuota(ctx, userID, m.today()); err != nil {
		return fmt.Errorf("usage recording failed: %w", err)
	}

	m.logger.DebugContext(ctx, "Usage recorded", "user_id", userID)
	return nil
}

// ceiling returns the daily ceiling for the user's tier.
func (m *Manager) ceiling(ctx context.Context, userID int64) (int, error) {
	premium, err := m.tiers.IsPremium(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("tier lookup failed: %w", err)
	}
	if premium {
		return m.premiumLimit, nil
	}
	return m.standardLimit, nil
}

func (m *Manager) today() string {
	return m.now().Format(DateLayout)
}
