package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/samvad-hq/graph-harvester/internal/domain"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "nested", "graph.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreSessionRoundTrip(t *testing.T) {
	store := openTestStore(t, Options{})

	if _, found, err := store.LoadSession(); err != nil || found {
		t.Fatalf("expected no session, found=%v err=%v", found, err)
	}

	want := domain.Session{AccessToken: "tok", AccessExpires: 1_700_000_000_000}
	if err := store.SaveSession(want); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, found, err := store.LoadSession()
	if err != nil || !found {
		t.Fatalf("LoadSession found=%v err=%v", found, err)
	}
	if got != want {
		t.Fatalf("LoadSession = %+v, want %+v", got, want)
	}

	if err := store.ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, found, _ := store.LoadSession(); found {
		t.Fatalf("expected session cleared")
	}
}

func TestBoltStoreMarksAndExpiresResponses(t *testing.T) {
	store := openTestStore(t, Options{
		ResponseTTL:     time.Minute,
		CleanupInterval: time.Minute,
	})
	now := time.Now()
	store.now = func() time.Time { return now }

	seen, err := store.SeenResponse("me:abc")
	if err != nil || seen {
		t.Fatalf("expected unseen response, seen=%v err=%v", seen, err)
	}

	if err := store.MarkResponse("me:abc"); err != nil {
		t.Fatalf("MarkResponse: %v", err)
	}

	seen, err = store.SeenResponse("me:abc")
	if err != nil || !seen {
		t.Fatalf("expected response seen, seen=%v err=%v", seen, err)
	}

	now = now.Add(2 * time.Minute)
	seen, err = store.SeenResponse("me:abc")
	if err != nil {
		t.Fatalf("SeenResponse after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.MarkResponse("x"); err != nil {
		t.Fatalf("noop store MarkResponse: %v", err)
	}
	if _, found, err := store.LoadSession(); err != nil || found {
		t.Fatalf("noop store LoadSession found=%v err=%v", found, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
