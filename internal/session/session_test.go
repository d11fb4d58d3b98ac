package session_test

import (
	"context"
	"testing"

	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/session"
)

func newTestTracker(t *testing.T) (*session.Tracker, database.Store) {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	return session.NewTracker(store, nil), store
}

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    session.State
		wantErr bool
	}{
		{name: "empty is idle", input: "", want: session.StateIdle},
		{name: "awaiting text", input: "awaiting_text", want: session.StateAwaitingText},
		{name: "awaiting photo", input: "awaiting_photo", want: session.StateAwaitingPhoto},
		{name: "awaiting summary", input: "awaiting_summary", want: session.StateAwaitingSummary},
		{name: "broadcast confirm", input: "awaiting_broadcast_confirm", want: session.StateAwaitingBroadcastConfirm},
		{name: "unknown tag", input: "awaiting_voice", wantErr: true},
		{name: "garbage", input: "???", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := session.Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStatePredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state       session.State
		adminFlow   bool
		acceptsDocs bool
	}{
		{state: session.StateIdle},
		{state: session.StateAwaitingText, acceptsDocs: true},
		{state: session.StateAwaitingPhoto},
		{state: session.StateAwaitingSummary, acceptsDocs: true},
		{state: session.StateAwaitingBroadcast, adminFlow: true},
		{state: session.StateAwaitingBroadcastConfirm, adminFlow: true},
		{state: session.StateAwaitingMemoryLookup, adminFlow: true},
		{state: session.StateAwaitingGrantPremium, adminFlow: true},
		{state: session.StateAwaitingRevokePremium, adminFlow: true},
	}

	for _, tt := range tests {
		if got := tt.state.IsAdminFlow(); got != tt.adminFlow {
			t.Errorf("%q.IsAdminFlow() = %v, want %v", tt.state, got, tt.adminFlow)
		}
		if got := tt.state.AcceptsDocument(); got != tt.acceptsDocs {
			t.Errorf("%q.AcceptsDocument() = %v, want %v", tt.state, got, tt.acceptsDocs)
		}
	}
}

func TestTrackerSetGetClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, _ := newTestTracker(t)

	state, err := tracker.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state != session.StateIdle {
		t.Fatalf("Get() with no row = %q, want idle", state)
	}

	if err := tracker.Set(ctx, 1, session.StateAwaitingPhoto); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	state, err = tracker.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state != session.StateAwaitingPhoto {
		t.Errorf("Get() = %q, want awaiting_photo", state)
	}

	if err := tracker.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if state, _ := tracker.Get(ctx, 1); state != session.StateIdle {
		t.Errorf("Get() after Clear = %q, want idle", state)
	}
}

func TestTrackerSetIdleClears(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, store := newTestTracker(t)

	if err := tracker.Set(ctx, 2, session.StateAwaitingText); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := tracker.Set(ctx, 2, session.StateIdle); err != nil {
		t.Fatalf("Set(idle) error = %v", err)
	}

	raw, err := store.GetSessionState(ctx, 2)
	if err != nil {
		t.Fatalf("GetSessionState() error = %v", err)
	}
	if raw != "" {
		t.Errorf("stored state = %q after Set(idle), want no row", raw)
	}
}

func TestTrackerRejectsUnknownState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, _ := newTestTracker(t)

	if err := tracker.Set(ctx, 3, session.State("awaiting_voice")); err == nil {
		t.Fatal("Set() with unknown state succeeded, want error")
	}
}

func TestTrackerClearsCorruptStoredState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker, store := newTestTracker(t)

	// Write a tag outside the closed alphabet directly, bypassing Set's
	// validation.
	if err := store.SetSessionState(ctx, 4, "legacy_mode"); err != nil {
		t.Fatalf("SetSessionState() error = %v", err)
	}

	state, err := tracker.Get(ctx, 4)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if state != session.StateIdle {
		t.Errorf("Get() with corrupt row = %q, want idle", state)
	}

	raw, err := store.GetSessionState(ctx, 4)
	if err != nil {
		t.Fatalf("GetSessionState() error = %v", err)
	}
	if raw != "" {
		t.Errorf("corrupt row still stored as %q, want cleared", raw)
	}
}
