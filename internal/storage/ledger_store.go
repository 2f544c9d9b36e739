// Package storage opens the configured LedgerStore.
package storage

import (
	"context"
	"fmt"

	"github.com/sheikh-saqib/erp-ledger-core/internal/config"
	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/memory"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/postgres"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/sqlite"
)

// LedgerStore is a store together with its lifecycle.
type LedgerStore interface {
	interfaces.LedgerStore
	// Migrate creates the schema if missing.
	Migrate(ctx context.Context) error
	Close() error
}

type memoryStore struct {
	*memory.MemoryLedgerStore
}

func (memoryStore) Migrate(context.Context) error { return nil }

func (memoryStore) Close() error { return nil }

// Open returns the store selected by cfg.Kind.
func Open(ctx context.Context, cfg config.StoreConfig) (LedgerStore, error) {
	switch cfg.Kind {
	case config.StoreMemory, "":
		return memoryStore{memory.NewMemoryLedgerStore()}, nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
	}
}
