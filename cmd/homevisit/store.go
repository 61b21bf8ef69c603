package main

import (
	"context"
	"fmt"

	"github.com/example/homevisit/internal/persistence"
	"github.com/example/homevisit/internal/persistence/memory"
	"github.com/example/homevisit/internal/persistence/sqlstore"
)

// openStore opens the configured store and brings its schema up to date.
func (a *app) openStore(ctx context.Context) (persistence.Store, error) {
	if a.cfg.DBDriver == "memory" {
		a.logger.WarnContext(ctx, "using in-memory storage, data is lost on exit")
		return memory.Open(), nil
	}

	store, err := sqlstore.Open(ctx, a.cfg.DBDriver, a.cfg.DBDSN, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", a.cfg.DBDriver, err)
	}
	applied, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if applied > 0 {
		a.logger.InfoContext(ctx, "schema migrations applied", "count", applied)
	}
	return store, nil
}

func (a *app) closeStore(ctx context.Context, store persistence.Store) {
	if err := store.Close(); err != nil {
		a.logger.ErrorContext(ctx, "failed to close storage", "error", err)
	}
}

func (a *app) migrate(ctx context.Context) error {
	if a.cfg.DBDriver == "memory" {
		return fmt.Errorf("%w: the memory driver has no schema", errUsage)
	}
	store, err := sqlstore.Open(ctx, a.cfg.DBDriver, a.cfg.DBDSN, a.logger)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", a.cfg.DBDriver, err)
	}
	defer a.closeStore(ctx, store)

	applied, err := store.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	fmt.Fprintf(a.stdout, "applied %d migration(s)\n", applied)
	return nil
}
