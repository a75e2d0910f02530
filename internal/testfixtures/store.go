package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/memory"
	"github.com/shoreagents/shoreagents-asset-dog-sub005/internal/persistence/sqlstore"
)

// StoreFactory opens a fresh, migrated store for one test.
type StoreFactory struct {
	Name string
	Open func(tb testing.TB) persistence.Store
}

// StoreFactories lists every persistence.Store implementation so contract
// tests can run against each of them.
func StoreFactories() []StoreFactory {
	return []StoreFactory{
		{Name: "memory", Open: NewMemoryStore},
		{Name: "sqlite", Open: NewSQLiteStore},
	}
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(tb testing.TB) persistence.Store {
	tb.Helper()
	return memory.NewStore()
}

// NewSQLiteStore opens a SQLite database in a temporary directory and applies
// the migrations. The store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) persistence.Store {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "assets.db")
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Dialect: sqlstore.DialectSQLite,
		DSN:     sqlstore.SQLiteDSN(path),
	})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	tb.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// Seed writes the given employees and assets into store.
func Seed(tb testing.TB, store persistence.Store, employees []EmployeeFixture, assets []AssetFixture) {
	tb.Helper()
	ctx := context.Background()
	for _, employee := range employees {
		if err := store.UpsertEmployee(ctx, employee.Persistence()); err != nil {
			tb.Fatalf("seed employee %s: %v", employee.ID, err)
		}
	}
	for _, asset := range assets {
		if err := store.CreateAsset(ctx, asset.Persistence()); err != nil {
			tb.Fatalf("seed asset %s: %v", asset.ID, err)
		}
	}
}
