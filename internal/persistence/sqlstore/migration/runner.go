package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

const versionTableDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version VARCHAR(32) PRIMARY KEY,
	checksum VARCHAR(64) NOT NULL,
	applied_at BIGINT NOT NULL,
	execution_time_ms BIGINT NOT NULL
)`

// Runner applies migrations to a database.
type Runner struct {
	db     *sql.DB
	rebind func(string) string
	logger *slog.Logger
	now    func() time.Time
}

// NewRunner constructs a Runner. rebind converts '?' placeholders to the
// driver's syntax and may be nil for drivers that accept '?'.
func NewRunner(db *sql.DB, rebind func(string) string, logger *slog.Logger) *Runner {
	if rebind == nil {
		rebind = func(q string) string { return q }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, rebind: rebind, logger: logger, now: time.Now}
}

// Run applies every migration not yet recorded, in order, each in its own
// transaction. It returns the number applied.
func (r *Runner) Run(ctx context.Context, migrations []Migration) (int, error) {
	if _, err := r.db.ExecContext(ctx, versionTableDDL); err != nil {
		return 0, newMigrationError("", "", "create schema_migrations table", err)
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return 0, err
	}
	checksums := make(map[string]string, len(applied))
	for _, a := range applied {
		checksums[a.Version] = a.Checksum
	}

	count := 0
	for _, m := range migrations {
		if sum, ok := checksums[m.Version]; ok {
			if sum != m.Checksum {
				return count, newMigrationError(m.Version, m.FilePath, "verify checksum", ErrChecksumMismatch)
			}
			continue
		}

		start := r.now()
		r.logger.InfoContext(ctx, "applying migration", "version", m.Version, "description", m.Description)
		if err := r.apply(ctx, m, start); err != nil {
			r.logger.ErrorContext(ctx, "migration failed", "version", m.Version, "error", err)
			return count, err
		}
		count++
		r.logger.InfoContext(ctx, "migration applied", "version", m.Version, "duration", r.now().Sub(start))
	}

	if count == 0 {
		r.logger.DebugContext(ctx, "schema up to date", "versions", len(applied))
	}
	return count, nil
}

func (r *Runner) apply(ctx context.Context, m Migration, start time.Time) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return newMigrationError(m.Version, m.FilePath, "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range splitStatements(m.SQL) {
		if _, execErr := tx.ExecContext(ctx, stmt); execErr != nil {
			return newMigrationError(m.Version, m.FilePath, fmt.Sprintf("execute statement %d", i+1),
				fmt.Errorf("%w: %v", ErrMigrationFailed, execErr))
		}
	}

	elapsed := r.now().Sub(start)
	if _, err = tx.ExecContext(ctx,
		r.rebind(`INSERT INTO schema_migrations (version, checksum, applied_at, execution_time_ms) VALUES (?, ?, ?, ?)`),
		m.Version, m.Checksum, r.now().UTC().UnixMilli(), elapsed.Milliseconds(),
	); err != nil {
		return newMigrationError(m.Version, m.FilePath, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return newMigrationError(m.Version, m.FilePath, "commit transaction", err)
	}
	return nil
}

// Applied lists recorded migrations ordered by version.
func (r *Runner) Applied(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, checksum, applied_at, execution_time_ms FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, newMigrationError("", "", "list applied migrations", err)
	}
	defer rows.Close()

	var out []AppliedMigration
	for rows.Next() {
		var (
			a         AppliedMigration
			appliedAt int64
			execMs    int64
		)
		if err := rows.Scan(&a.Version, &a.Checksum, &appliedAt, &execMs); err != nil {
			return nil, newMigrationError("", "", "scan applied migration", err)
		}
		a.AppliedAt = time.UnixMilli(appliedAt).UTC()
		a.ExecutionTime = time.Duration(execMs) * time.Millisecond
		out = append(out, a)
	}
	return out, rows.Err()
}
