package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/persistence/memory"
	"github.com/example/homevisit/internal/persistence/sqlstore"
)

// StoreHarness exposes a migrated persistence.Store together with its
// non-transactional repositories for integration-style tests.
type StoreHarness struct {
	persistence.Repositories

	Store persistence.Store
	Name  string

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *StoreHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a StoreHarness using a temporary SQLite file that
// is migrated automatically. The harness is closed through tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "homevisit.db")
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"

	ctx := context.Background()
	store, err := sqlstore.Open(ctx, "sqlite", dsn, DiscardLogger())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &StoreHarness{
		Repositories: store.Repositories(),
		Store:        store,
		Name:         "sqlite",
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// NewMemoryHarness constructs a StoreHarness over the in-memory store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	store := memory.Open()
	harness := &StoreHarness{
		Repositories: store.Repositories(),
		Store:        store,
		Name:         "memory",
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// StoreHarnesses returns one harness per store implementation so contract
// tests can run against each.
func StoreHarnesses(tb testing.TB) []*StoreHarness {
	tb.Helper()
	return []*StoreHarness{NewMemoryHarness(tb), NewSQLiteHarness(tb)}
}
