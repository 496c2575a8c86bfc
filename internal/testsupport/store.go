package testsupport

import (
	"testing"

	"clipper/internal/clipstore"
	"clipper/internal/config"
	"clipper/internal/history"
)

// MustOpenStore opens the clip snapshot for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *clipstore.Store {
	t.Helper()

	store, err := clipstore.Open(cfg.Paths.SnapshotPath, nil)
	if err != nil {
		t.Fatalf("clipstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustOpenHistory opens the run ledger for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
