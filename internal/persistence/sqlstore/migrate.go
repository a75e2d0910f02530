package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrate applies pending schema migrations for the store's dialect and returns
// how many were applied.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+string(s.pool.Dialect()))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: locate migrations: %w", err)
	}

	provider, err := goose.NewProvider(s.pool.Dialect().gooseDialect(), s.pool.DB(), fsys)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: prepare migrations: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("sqlstore: apply migrations: %w", err)
	}
	return len(results), nil
}

// SchemaVersion reports the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int64, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations/"+string(s.pool.Dialect()))
	if err != nil {
		return 0, fmt.Errorf("sqlstore: locate migrations: %w", err)
	}
	provider, err := goose.NewProvider(s.pool.Dialect().gooseDialect(), s.pool.DB(), fsys)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: prepare migrations: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
