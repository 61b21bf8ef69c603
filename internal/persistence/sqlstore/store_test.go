package sqlstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/homevisit/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "store.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	store, err := Open(context.Background(), "sqlite", dsn, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)

	applied, err := store.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 migration applied, got %d", applied)
	}

	applied, err = store.Migrate(ctx)
	if err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on re-run, got %d", applied)
	}

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}

func TestStoreKeepsMillisecondPrecision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	start := time.Date(2024, time.June, 3, 10, 0, 0, 123_456_789, loc)
	meeting := persistence.Meeting{
		ID:        "m-1",
		Name:      "Home visit",
		Start:     start,
		End:       start.Add(time.Hour),
		CreatedAt: start.Add(-time.Hour),
	}
	if err := store.Repositories().Meetings.InsertMeeting(ctx, meeting); err != nil {
		t.Fatalf("InsertMeeting failed: %v", err)
	}

	fetched, err := store.Repositories().Meetings.GetMeeting(ctx, "m-1")
	if err != nil {
		t.Fatalf("GetMeeting failed: %v", err)
	}
	if !fetched.Start.Equal(start.Truncate(time.Millisecond)) {
		t.Fatalf("expected %v, got %v", start.Truncate(time.Millisecond), fetched.Start)
	}
	if fetched.Start.Location() != time.UTC {
		t.Fatalf("expected UTC instants, got %v", fetched.Start.Location())
	}
}

func TestStoreRejectsInvalidInterval(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openTestStore(t)
	if _, err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	at := time.Date(2024, time.June, 3, 17, 0, 0, 0, time.UTC)
	err := store.Repositories().Meetings.InsertMeeting(ctx, persistence.Meeting{ID: "m-1", Name: "x", Start: at, End: at})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}
