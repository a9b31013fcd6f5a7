package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/AstreaTSS/Cherub/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "cherub.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFetchCreatesEmpty(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	cfg, err := s.Fetch(ctx, "100000000000000001")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if cfg.GuildID != "100000000000000001" {
		t.Errorf("GuildID = %q", cfg.GuildID)
	}
	if len(cfg.Pinboards) != 0 {
		t.Errorf("new config should have no pinboards, got %v", cfg.Pinboards)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	const guild = "100000000000000002"

	cfg, err := s.Fetch(ctx, guild)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	cfg.Pinboards["200000000000000001"] = "300000000000000001"
	cfg.Pinboards[store.GlobalPinboard] = "300000000000000002"
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	again, err := s.Fetch(ctx, guild)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if again.Pinboards["200000000000000001"] != "300000000000000001" {
		t.Errorf("mapping lost on round trip: %v", again.Pinboards)
	}

	// Mutating the returned copy must not leak into the store's cache.
	again.Pinboards["200000000000000009"] = "junk"
	third, err := s.Fetch(ctx, guild)
	if err != nil {
		t.Fatalf("third Fetch: %v", err)
	}
	if _, ok := third.Pinboards["200000000000000009"]; ok {
		t.Error("caller mutation visible through cache")
	}
}

func TestRemoveEntry(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	const guild = "100000000000000003"

	cfg, _ := s.Fetch(ctx, guild)
	cfg.Pinboards["src"] = "dst"
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	delete(cfg.Pinboards, "src")
	if err := s.Save(ctx, cfg); err != nil {
		t.Fatalf("Save after delete: %v", err)
	}
	again, _ := s.Fetch(ctx, guild)
	if len(again.Pinboards) != 0 {
		t.Errorf("entry should be gone, got %v", again.Pinboards)
	}
}

func TestDestination(t *testing.T) {
	cfg := &store.PinboardConfig{
		GuildID: "g",
		Pinboards: map[string]string{
			"chan1":               "dest1",
			store.GlobalPinboard: "fallback",
		},
	}
	if got := cfg.Destination("chan1"); got != "dest1" {
		t.Errorf("Destination(chan1) = %q", got)
	}
	if got := cfg.Destination("chan2"); got != "fallback" {
		t.Errorf("Destination(chan2) = %q, want fallback", got)
	}
	noGlobal := &store.PinboardConfig{GuildID: "g", Pinboards: map[string]string{}}
	if got := noGlobal.Destination("chan1"); got != "" {
		t.Errorf("Destination with no mapping = %q, want empty", got)
	}
}
