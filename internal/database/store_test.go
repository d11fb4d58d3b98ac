package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/ndrwnv/zubrilabot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestUpsertUserActivity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if profile, err := store.GetUserProfile(ctx, 100); err != nil || profile != nil {
		t.Fatalf("GetUserProfile() before any activity = %v, %v, want nil, nil", profile, err)
	}

	for _, kind := range []database.ActivityKind{
		database.ActivityText,
		database.ActivityText,
		database.ActivityPhoto,
		database.ActivityDocument,
	} {
		if err := store.UpsertUserActivity(ctx, 100, kind); err != nil {
			t.Fatalf("UpsertUserActivity(%s) error = %v", kind, err)
		}
	}

	profile, err := store.GetUserProfile(ctx, 100)
	if err != nil {
		t.Fatalf("GetUserProfile() error = %v", err)
	}
	if profile == nil {
		t.Fatal("GetUserProfile() = nil, want profile")
	}
	if profile.MessageCount != 2 || profile.PhotoCount != 1 || profile.DocumentCount != 1 {
		t.Errorf("counters = %d/%d/%d, want 2/1/1",
			profile.MessageCount, profile.PhotoCount, profile.DocumentCount)
	}
	if profile.TotalActivity() != 4 {
		t.Errorf("TotalActivity() = %d, want 4", profile.TotalActivity())
	}
	if profile.LastSeen.Before(profile.FirstSeen) {
		t.Errorf("last_seen %v before first_seen %v", profile.LastSeen, profile.FirstSeen)
	}
}

func TestUpsertUserActivityRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	if err := store.UpsertUserActivity(context.Background(), 1, database.ActivityKind("sticker")); err == nil {
		t.Fatal("UpsertUserActivity() with unknown kind succeeded, want error")
	}
}

func TestIncrementQuota(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if record, err := store.GetQuotaRecord(ctx, 200); err != nil || record != nil {
		t.Fatalf("GetQuotaRecord() before any usage = %v, %v, want nil, nil", record, err)
	}

	for range 3 {
		if err := store.IncrementQuota(ctx, 200, "2026-08-24"); err != nil {
			t.Fatalf("IncrementQuota() error = %v", err)
		}
	}

	record, err := store.GetQuotaRecord(ctx, 200)
	if err != nil {
		t.Fatalf("GetQuotaRecord() error = %v", err)
	}
	if record == nil || record.Count != 3 || record.Date != "2026-08-24" {
		t.Fatalf("record = %+v, want count 3 on 2026-08-24", record)
	}
}

func TestIncrementQuotaRollsOverOnNewDate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for range 5 {
		if err := store.IncrementQuota(ctx, 201, "2026-08-23"); err != nil {
			t.Fatalf("IncrementQuota() error = %v", err)
		}
	}
	if err := store.IncrementQuota(ctx, 201, "2026-08-24"); err != nil {
		t.Fatalf("IncrementQuota() on new date error = %v", err)
	}

	record, err := store.GetQuotaRecord(ctx, 201)
	if err != nil {
		t.Fatalf("GetQuotaRecord() error = %v", err)
	}
	if record == nil || record.Count != 1 || record.Date != "2026-08-24" {
		t.Fatalf("record after rollover = %+v, want count 1 on 2026-08-24", record)
	}
}

func TestInsertMemoryEntryEvictsBeyondLimit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	const limit = 3

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := range 5 {
		entry := &database.MemoryEntry{
			UserID:    300,
			Prompt:    "q" + string(rune('0'+i)),
			Response:  "a" + string(rune('0'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.InsertMemoryEntry(ctx, entry, limit); err != nil {
			t.Fatalf("InsertMemoryEntry() error = %v", err)
		}
		if entry.ID == 0 {
			t.Fatal("InsertMemoryEntry() did not set entry ID")
		}
	}

	entries, err := store.GetMemoryEntries(ctx, 300)
	if err != nil {
		t.Fatalf("GetMemoryEntries() error = %v", err)
	}
	if len(entries) != limit {
		t.Fatalf("len(entries) = %d, want %d", len(entries), limit)
	}
	if entries[0].Prompt != "q2" || entries[limit-1].Prompt != "q4" {
		t.Errorf("window = [%s..%s], want [q2..q4]", entries[0].Prompt, entries[limit-1].Prompt)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].CreatedAt.Before(entries[i-1].CreatedAt) {
			t.Errorf("entries not in chronological order at %d", i)
		}
	}
}

func TestInsertMemoryEntryTieBreaksOnID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	const limit = 2

	// Identical timestamps: insertion order via the autoincrement id must
	// decide which entry is oldest.
	at := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		entry := &database.MemoryEntry{
			UserID:    301,
			Prompt:    "p" + string(rune('0'+i)),
			Response:  "r",
			CreatedAt: at,
		}
		if err := store.InsertMemoryEntry(ctx, entry, limit); err != nil {
			t.Fatalf("InsertMemoryEntry() error = %v", err)
		}
	}

	entries, err := store.GetMemoryEntries(ctx, 301)
	if err != nil {
		t.Fatalf("GetMemoryEntries() error = %v", err)
	}
	if len(entries) != limit {
		t.Fatalf("len(entries) = %d, want %d", len(entries), limit)
	}
	if entries[0].Prompt != "p1" || entries[1].Prompt != "p2" {
		t.Errorf("window = [%s, %s], want [p1, p2]", entries[0].Prompt, entries[1].Prompt)
	}
}

func TestDeleteMemoryEntriesIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	entry := &database.MemoryEntry{UserID: 302, Prompt: "q", Response: "a"}
	if err := store.InsertMemoryEntry(ctx, entry, 10); err != nil {
		t.Fatalf("InsertMemoryEntry() error = %v", err)
	}

	for range 2 {
		if err := store.DeleteMemoryEntries(ctx, 302); err != nil {
			t.Fatalf("DeleteMemoryEntries() error = %v", err)
		}
	}

	entries, err := store.GetMemoryEntries(ctx, 302)
	if err != nil {
		t.Fatalf("GetMemoryEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d after delete, want 0", len(entries))
	}
}

func TestSessionStateLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if state, err := store.GetSessionState(ctx, 400); err != nil || state != "" {
		t.Fatalf("GetSessionState() with no row = %q, %v, want empty, nil", state, err)
	}

	if err := store.SetSessionState(ctx, 400, "awaiting_text"); err != nil {
		t.Fatalf("SetSessionState() error = %v", err)
	}
	if err := store.SetSessionState(ctx, 400, "awaiting_photo"); err != nil {
		t.Fatalf("SetSessionState() overwrite error = %v", err)
	}

	state, err := store.GetSessionState(ctx, 400)
	if err != nil {
		t.Fatalf("GetSessionState() error = %v", err)
	}
	if state != "awaiting_photo" {
		t.Errorf("state = %q, want awaiting_photo", state)
	}

	for range 2 {
		if err := store.ClearSessionState(ctx, 400); err != nil {
			t.Fatalf("ClearSessionState() error = %v", err)
		}
	}
	if state, err := store.GetSessionState(ctx, 400); err != nil || state != "" {
		t.Errorf("GetSessionState() after clear = %q, %v, want empty, nil", state, err)
	}
}

func TestDeleteStaleSessionStates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if err := store.SetSessionState(ctx, 500, "awaiting_text"); err != nil {
		t.Fatalf("SetSessionState() error = %v", err)
	}
	if err := store.SetSessionState(ctx, 501, "awaiting_photo"); err != nil {
		t.Fatalf("SetSessionState() error = %v", err)
	}

	// Both rows were just written; a cutoff in the past must remove nothing.
	count, err := store.DeleteStaleSessionStates(ctx, time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleSessionStates() error = %v", err)
	}
	if count != 0 {
		t.Errorf("deleted %d fresh states, want 0", count)
	}

	count, err = store.DeleteStaleSessionStates(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("DeleteStaleSessionStates() error = %v", err)
	}
	if count != 2 {
		t.Errorf("deleted %d states with future cutoff, want 2", count)
	}

	if state, _ := store.GetSessionState(ctx, 500); state != "" {
		t.Errorf("state for 500 = %q after sweep, want empty", state)
	}
}

func TestPremiumMembership(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	if premium, err := store.IsPremium(ctx, 600); err != nil || premium {
		t.Fatalf("IsPremium() before add = %v, %v, want false, nil", premium, err)
	}

	for range 2 {
		if err := store.AddPremium(ctx, 600); err != nil {
			t.Fatalf("AddPremium() error = %v", err)
		}
	}
	if err := store.AddPremium(ctx, 601); err != nil {
		t.Fatalf("AddPremium() error = %v", err)
	}

	premium, err := store.IsPremium(ctx, 600)
	if err != nil {
		t.Fatalf("IsPremium() error = %v", err)
	}
	if !premium {
		t.Error("IsPremium() = false after add, want true")
	}

	ids, err := store.ListPremium(ctx)
	if err != nil {
		t.Fatalf("ListPremium() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 600 || ids[1] != 601 {
		t.Errorf("ListPremium() = %v, want [600 601]", ids)
	}

	for range 2 {
		if err := store.RemovePremium(ctx, 600); err != nil {
			t.Fatalf("RemovePremium() error = %v", err)
		}
	}
	if premium, _ := store.IsPremium(ctx, 600); premium {
		t.Error("IsPremium() = true after remove, want false")
	}
}
