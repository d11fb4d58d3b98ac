// Package tier implements the premium/admin registry. Premium membership
// lives in the database; the admin set is static process configuration and
// is never persisted or mutated at runtime.
package tier

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ndrwnv/zubrilabot/internal/database"
)

// Registry answers tier questions for a user and mutates the premium set.
// Authorization of the callers of GrantPremium/RevokePremium is the command
// routing layer's job; the registry trusts its caller.
type Registry struct {
	store  database.Store
	admins map[int64]struct{}
	logger *slog.Logger
}

// NewRegistry creates a Registry with the given static admin ids.
func NewRegistry(store database.Store, adminIDs []int64, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Registry{
		store:  store,
		admins: admins,
		logger: logger.With("component", "tier_registry"),
	}
}

// IsAdmin reports whether the user is in the static admin set.
func (r *Registry) IsAdmin(userID int64) bool {
	_, ok := r.admins[userID]
	return ok
}

// IsPremium reports whether the user is in the premium set.
func (r *Registry) IsPremium(ctx context.Context, userID int64) (bool, error) {
	premium, err := r.store.IsPremium(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("premium lookup failed: %w", err)
	}
	return premium, nil
}

// GrantPremium adds the user to the premium set. Idempotent.
func (r *Registry) GrantPremium(ctx context.Context, userID int64) error {
	if err := r.store.AddPremium(ctx, userID); err != nil {
		return fmt.Errorf("grant premium failed: %w", err)
	}
	r.logger.InfoContext(ctx, "Granted premium tier", "user_id", userID)
	return nil
}

// RevokePremium removes the user from the premium set. Idempotent.
func (r *Registry) RevokePremium(ctx context.Context, userID int64) error {
	if err := r.store.RemovePremium(ctx, userID); err != nil {
		return fmt.Errorf("revoke premium failed: %w", err)
	}
	r.logger.InfoContext(ctx, "Revoked premium tier", "user_id", userID)
	return nil
}

// ListPremium returns all premium user ids.
func (r *Registry) ListPremium(ctx context.Context) ([]int64, error) {
	ids, err := r.store.ListPremium(ctx)
	if err != nil {
		return nil, fmt.Errorf("premium list failed: %w", err)
	}
	return ids, nil
}
