package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/config"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/memory"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/sqlstore"
)

// openStore connects the configured backend and brings its schema up to date.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (persistence.Store, error) {
	if cfg.DBDriver == config.DriverMemory {
		logger.WarnContext(ctx, "using the in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.DBDSN})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	applied, err := store.Migrate(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if applied > 0 {
		logger.InfoContext(ctx, "applied schema migrations", "count", applied, "dialect", string(dialect))
	}
	return store, nil
}
