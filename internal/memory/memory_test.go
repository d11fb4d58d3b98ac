package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/memory"
)

func newTestManager(t *testing.T, window int) *memory.Manager {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return memory.NewManager(database.NewStore(db, nil), window, nil)
}

func TestWindowNeverExceedsSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	const window = 4
	m := newTestManager(t, window)

	for i := range window + 3 {
		if err := m.Remember(ctx, 1, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("Remember() error = %v", err)
		}

		history, err := m.History(ctx, 1)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) > window {
			t.Fatalf("after %d exchanges window holds %d, want at most %d", i+1, len(history), window)
		}
	}

	history, err := m.History(ctx, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != window {
		t.Fatalf("len(history) = %d, want %d", len(history), window)
	}
	// Newest first; the oldest three exchanges must be gone.
	if history[0].Prompt != "q6" || history[window-1].Prompt != "q3" {
		t.Errorf("history = [%s..%s], want [q6..q3]", history[0].Prompt, history[window-1].Prompt)
	}
}

func TestRecentReturnsChronologicalTail(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, 10)

	for i := range 6 {
		if err := m.Remember(ctx, 2, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)); err != nil {
			t.Fatalf("Remember() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		n         int
		wantLen   int
		wantFirst string
		wantLast  string
	}{
		{name: "fewer than stored", n: 3, wantLen: 3, wantFirst: "q3", wantLast: "q5"},
		{name: "more than stored", n: 10, wantLen: 6, wantFirst: "q0", wantLast: "q5"},
		{name: "unbounded", n: 0, wantLen: 6, wantFirst: "q0", wantLast: "q5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recent, err := m.Recent(ctx, 2, tt.n)
			if err != nil {
				t.Fatalf("Recent(%d) error = %v", tt.n, err)
			}
			if len(recent) != tt.wantLen {
				t.Fatalf("len(recent) = %d, want %d", len(recent), tt.wantLen)
			}
			if recent[0].Prompt != tt.wantFirst || recent[len(recent)-1].Prompt != tt.wantLast {
				t.Errorf("recent = [%s..%s], want [%s..%s]",
					recent[0].Prompt, recent[len(recent)-1].Prompt, tt.wantFirst, tt.wantLast)
			}
		})
	}
}

func TestForgetIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, 10)

	if err := m.Remember(ctx, 3, "q", "a"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}

	for range 2 {
		if err := m.Forget(ctx, 3); err != nil {
			t.Fatalf("Forget() error = %v", err)
		}
	}

	history, err := m.History(ctx, 3)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 0 {
		t.Errorf("len(history) = %d after Forget, want 0", len(history))
	}
}

func TestWindowsAreIsolatedPerUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := newTestManager(t, 5)

	if err := m.Remember(ctx, 10, "question from ten", "answer"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	if err := m.Remember(ctx, 11, "question from eleven", "answer"); err != nil {
		t.Fatalf("Remember() error = %v", err)
	}
	if err := m.Forget(ctx, 10); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}

	history, err := m.History(ctx, 11)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 1 || history[0].Prompt != "question from eleven" {
		t.Errorf("history for user 11 = %+v, want their single exchange", history)
	}
}
