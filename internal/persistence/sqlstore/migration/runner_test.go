package migration

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	runner := NewRunner(db, nil, quietLogger())

	fsys := fstest.MapFS{
		"001_initial_schema.sql": {Data: []byte("CREATE TABLE households (id TEXT PRIMARY KEY);\nCREATE TABLE meetings (id TEXT PRIMARY KEY);")},
		"002_add_faqs.sql":       {Data: []byte("CREATE TABLE faqs (short_name TEXT PRIMARY KEY);")},
	}
	migrations, err := Scan(fsys)
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	applied, err := runner.Run(ctx, migrations)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 migrations applied, got %d", applied)
	}

	for _, table := range []string{"households", "meetings", "faqs"} {
		if _, err := db.ExecContext(ctx, "SELECT COUNT(*) FROM "+table); err != nil {
			t.Fatalf("expected table %s to exist: %v", table, err)
		}
	}

	again, err := runner.Run(ctx, migrations)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if again != 0 {
		t.Fatalf("expected no migrations on second run, got %d", again)
	}

	recorded, err := runner.Applied(ctx)
	if err != nil {
		t.Fatalf("Applied returned error: %v", err)
	}
	if len(recorded) != 2 || recorded[0].Version != "001" || recorded[0].Checksum != migrations[0].Checksum {
		t.Fatalf("unexpected applied rows %+v", recorded)
	}
}

func TestRunner_RejectsModifiedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	runner := NewRunner(db, nil, quietLogger())

	original, err := Scan(fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if _, err := runner.Run(ctx, original); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	edited, err := Scan(fstest.MapFS{"001_init.sql": {Data: []byte("CREATE TABLE a (id TEXT, name TEXT);")}})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if _, err := runner.Run(ctx, edited); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch, got %v", err)
	}
}

func TestRunner_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	runner := NewRunner(db, nil, quietLogger())

	migrations, err := Scan(fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE a (id TEXT);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE b (id TEXT);\nCREATE TABLE a (id TEXT);")},
	})
	if err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}

	applied, err := runner.Run(ctx, migrations)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected first migration to be applied, got %d", applied)
	}
	if _, err := db.ExecContext(ctx, "SELECT COUNT(*) FROM b"); err == nil {
		t.Fatalf("expected table b to be rolled back")
	}
}
