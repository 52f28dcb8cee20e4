package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create idempotency store: %v", err)
	}
	return store, s
}

func TestNewStore(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestClaim_FirstClaimWins(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	claimed, err := store.Claim(ctx, "publish-2025-q1-abc")
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Error("expected first claim to succeed")
	}

	replayed, err := store.Claim(ctx, "publish-2025-q1-abc")
	if err != nil {
		t.Fatalf("replay Claim failed: %v", err)
	}
	if replayed {
		t.Error("expected replayed claim to be rejected")
	}
}

func TestClaim_DistinctKeysIndependent(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	for _, key := range []string{"delete-ra-1", "delete-ra-2"} {
		claimed, err := store.Claim(ctx, key)
		if err != nil {
			t.Fatalf("Claim(%s) failed: %v", key, err)
		}
		if !claimed {
			t.Errorf("expected fresh key %s to claim", key)
		}
	}
}

func TestClaim_ExpiresAfterTTL(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if claimed, err := store.Claim(ctx, "publish-retry"); err != nil || !claimed {
		t.Fatalf("first claim: claimed=%v err=%v", claimed, err)
	}

	s.FastForward(2 * time.Hour)

	claimed, err := store.Claim(ctx, "publish-retry")
	if err != nil {
		t.Fatalf("post-expiry Claim failed: %v", err)
	}
	if !claimed {
		t.Error("expected expired key to be claimable again")
	}
}

func TestRelease(t *testing.T) {
	store, s := setupTestStore(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if claimed, _ := store.Claim(ctx, "delete-ra-9"); !claimed {
		t.Fatal("expected first claim to succeed")
	}
	if err := store.Release(ctx, "delete-ra-9"); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	claimed, err := store.Claim(ctx, "delete-ra-9")
	if err != nil {
		t.Fatalf("re-claim failed: %v", err)
	}
	if !claimed {
		t.Error("expected released key to be claimable again")
	}
}
