package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/persistence/sqlstore/migration"
)

//go:embed migrations
var migrationFiles embed.FS

// Store is a persistence.Store backed by database/sql.
type Store struct {
	pool   *Pool
	retry  *RetryHelper
	logger *slog.Logger
}

// Open connects to the database selected by driver and dsn.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	pool, err := OpenPool(ctx, dialect, dsn)
	if err != nil {
		return nil, err
	}
	return NewStore(pool, logger), nil
}

// NewStore wraps an open pool.
func NewStore(pool *Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, retry: NewRetryHelper(DefaultRetryConfig()), logger: logger}
}

// Migrate applies the embedded schema migrations for the store's dialect.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations/"+s.pool.dialect.Name)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: migrations for %s: %w", s.pool.dialect.Name, err)
	}
	migrations, err := migration.Scan(fsys)
	if err != nil {
		return 0, err
	}
	runner := migration.NewRunner(s.pool.db, s.pool.dialect.Rebind, s.logger.With("component", "migration"))
	return runner.Run(ctx, migrations)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Repositories returns repositories that run each call on the pool.
func (s *Store) Repositories() persistence.Repositories {
	return s.bind(conn{pool: s.pool, q: s.pool.db})
}

// WithTx runs fn in one transaction, retrying the whole transaction on
// transient lock errors.
func (s *Store) WithTx(ctx context.Context, fn persistence.TxFunc) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(ctx, s.bind(conn{pool: s.pool, q: tx, inTx: true}))
		})
	})
}

func (s *Store) bind(c conn) persistence.Repositories {
	return persistence.Repositories{
		Meetings:   &MeetingRepository{conn: c},
		Households: &HouseholdRepository{conn: c},
		People:     &PersonRepository{conn: c},
		Feedback:   &FeedbackRepository{conn: c},
		Faqs:       &FaqRepository{conn: c},
	}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn binds repositories to either the pool or an open transaction.
type conn struct {
	pool *Pool
	q    querier
	inTx bool
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := c.q.ExecContext(ctx, c.pool.dialect.Rebind(query), args...)
	return res, mapError(err)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := c.q.QueryContext(ctx, c.pool.dialect.Rebind(query), args...)
	return rows, mapError(err)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.pool.dialect.Rebind(query), args...)
}

// atomic runs fn in the current transaction, or opens one when the
// repository is bound to the pool.
func (c conn) atomic(ctx context.Context, fn func(c conn) error) error {
	if c.inTx {
		return fn(c)
	}
	return c.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(conn{pool: c.pool, q: tx, inTx: true})
	})
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

var _ persistence.Store = (*Store)(nil)
