// Package session implements the per-user session state tracker: a
// single-slot marker saying what kind of input the bot expects next from a
// user. The state alphabet is a closed enumeration; unknown tags found in
// storage are rejected and cleared rather than passed through.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// State is a symbolic session marker. The zero value is idle (no row stored).
type State string

const (
	StateIdle                     State = ""
	StateAwaitingText             State = "awaiting_text"
	StateAwaitingPhoto            State = "awaiting_photo"
	StateAwaitingSummary          State = "awaiting_summary"
	StateAwaitingBroadcast        State = "awaiting_broadcast"
	StateAwaitingBroadcastConfirm State = "awaiting_broadcast_confirm"
	StateAwaitingMemoryLookup     State = "awaiting_memory_lookup"
	StateAwaitingGrantPremium     State = "awaiting_grant_premium"
	StateAwaitingRevokePremium    State = "awaiting_revoke_premium"
)

var validStates = map[State]struct{}{
	StateAwaitingText:             {},
	StateAwaitingPhoto:            {},
	StateAwaitingSummary:          {},
	StateAwaitingBroadcast:        {},
	StateAwaitingBroadcastConfirm: {},
	StateAwaitingMemoryLookup:     {},
	StateAwaitingGrantPremium:     {},
	StateAwaitingRevokePremium:    {},
}

// Parse converts a stored tag into a State. The empty string parses to
// StateIdle; anything outside the closed alphabet is an error.
func Parse(s string) (State, error) {
	if s == "" {
		return StateIdle, nil
	}
	state := State(s)
	if _, ok := validStates[state]; !ok {
		return StateIdle, fmt.Errorf("unknown session state %q", s)
	}
	return state, nil
}

// IsAdminFlow reports whether the state belongs to an admin sub-flow.
func (s State) IsAdminFlow() bool {
	switch s {
	case StateAwaitingBroadcast, StateAwaitingBroadcastConfirm,
		StateAwaitingMemoryLookup, StateAwaitingGrantPremium, StateAwaitingRevokePremium:
		return true
	}
	return false
}

// AcceptsDocument reports whether a document upload is a valid input for
// the state. Documents are only processed in solve-text and summary modes.
func (s State) AcceptsDocument() bool {
	return s == StateAwaitingText || s == StateAwaitingSummary
}

// stateStore is the slice of the database layer the tracker needs.
type stateStore interface {
	GetSessionState(ctx context.Context, userID int64) (string, error)
	SetSessionState(ctx context.Context, userID int64, state string) error
	ClearSessionState(ctx context.Context, userID int64) error
}

// Tracker reads and writes per-user session states. Concurrent writes for
// the same user resolve as last-write-wins; the chat platform serializes a
// single user's messages in practice.
type Tracker struct {
	store  stateStore
	logger *slog.Logger
}

// NewTracker creates a session Tracker.
func NewTracker(store stateStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tracker{
		store:  store,
		logger: logger.With("component", "session_tracker"),
	}
}

// Get returns the user's current state. A stored tag outside the closed
// alphabet is cleared and reported as idle, so a corrupt row cannot wedge
// the user in an unreachable mode.
func (t *Tracker) Get(ctx context.Context, userID int64) (State, error) {
	raw, err := t.store.GetSessionState(ctx, userID)
	if err != nil {
		return StateIdle, fmt.Errorf("session state lookup failed: %w", err)
	}

	state, parseErr := Parse(raw)
	if parseErr != nil {
		t.logger.WarnContext(ctx, "Rejecting unknown session state, clearing", "user_id", userID, "state", raw)
		if clearErr := t.store.ClearSessionState(ctx, userID); clearErr != nil {
			return StateIdle, fmt.Errorf("failed to clear unknown session state: %w", clearErr)
		}
		return StateIdle, nil
	}

	return state, nil
}

// Set transitions the user into the given awaiting state. Setting
// StateIdle is equivalent to Clear.
func (t *Tracker) Set(ctx context.Context, userID int64, state State) error {
	if state == StateIdle {
		return t.Clear(ctx, userID)
	}
	if _, ok := validStates[state]; !ok {
		return fmt.Errorf("refusing to store unknown session state %q", state)
	}

	if err := t.store.SetSessionState(ctx, userID, string(state)); err != nil {
		return fmt.Errorf("session state update failed: %w", err)
	}

	t.logger.DebugContext(ctx, "Session state set", "user_id", userID, "state", state)
	return nil
}

// Clear returns the user to idle. Idempotent.
func (t *Tracker) Clear(ctx context.Context, userID int64) error {
	if err := t.store.ClearSessionState(ctx, userID); err != nil {
		return fmt.Errorf("session state clear failed: %w", err)
	}

	t.logger.DebugContext(ctx, "Session state cleared", "user_id", userID)
	return nil
}
