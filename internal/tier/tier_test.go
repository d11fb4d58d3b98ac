package tier_test

import (
	"context"
	"testing"

	"github.com/ndrwnv/zubrilabot/internal/database"
	"github.com/ndrwnv/zubrilabot/internal/tier"
)

func newTestRegistry(t *testing.T, adminIDs []int64) *tier.Registry {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return tier.NewRegistry(database.NewStore(db, nil), adminIDs, nil)
}

func TestIsAdmin(t *testing.T) {
	t.Parallel()

	registry := newTestRegistry(t, []int64{10, 20})

	tests := []struct {
		name   string
		userID int64
		want   bool
	}{
		{name: "first admin", userID: 10, want: true},
		{name: "second admin", userID: 20, want: true},
		{name: "regular user", userID: 30, want: false},
		{name: "zero id", userID: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := registry.IsAdmin(tt.userID); got != tt.want {
				t.Errorf("IsAdmin(%d) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}

func TestPremiumLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newTestRegistry(t, []int64{10})

	premium, err := registry.IsPremium(ctx, 100)
	if err != nil {
		t.Fatalf("IsPremium() error = %v", err)
	}
	if premium {
		t.Error("IsPremium() = true before grant, want false")
	}

	// Grant twice: idempotent.
	for range 2 {
		if err := registry.GrantPremium(ctx, 100); err != nil {
			t.Fatalf("GrantPremium() error = %v", err)
		}
	}

	premium, err = registry.IsPremium(ctx, 100)
	if err != nil {
		t.Fatalf("IsPremium() error = %v", err)
	}
	if !premium {
		t.Error("IsPremium() = false after grant, want true")
	}

	ids, err := registry.ListPremium(ctx)
	if err != nil {
		t.Fatalf("ListPremium() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != 100 {
		t.Errorf("ListPremium() = %v, want [100]", ids)
	}

	for range 2 {
		if err := registry.RevokePremium(ctx, 100); err != nil {
			t.Fatalf("RevokePremium() error = %v", err)
		}
	}
	if premium, _ := registry.IsPremium(ctx, 100); premium {
		t.Error("IsPremium() = true after revoke, want false")
	}
}

func TestAdminAndPremiumAreIndependent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registry := newTestRegistry(t, []int64{10})

	// Admin status is static configuration; granting premium to an admin
	// neither fails nor changes their admin standing.
	if err := registry.GrantPremium(ctx, 10); err != nil {
		t.Fatalf("GrantPremium() for admin error = %v", err)
	}
	if !registry.IsAdmin(10) {
		t.Error("IsAdmin() = false after premium grant, want true")
	}
	premium, err := registry.IsPremium(ctx, 10)
	if err != nil {
		t.Fatalf("IsPremium() error = %v", err)
	}
	if !premium {
		t.Error("IsPremium() = false for admin after grant, want true")
	}
}
