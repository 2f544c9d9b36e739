// Package sqlite is the SQLite dialect of the SQL ledger store. Writers are
// serialised by opening every transaction with BEGIN IMMEDIATE.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/sqlstore"
)

//go:embed schema.sql
var schema string

const params = "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"

// Dialect implements sqlstore.Dialect for mattn/go-sqlite3.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Schema() string { return schema }

func (Dialect) Rebind(query string) string { return query }

// LockClause is empty: the immediate transaction already holds the database write lock.
func (Dialect) LockClause() string { return "" }

func (Dialect) LockScope(ctx context.Context, tx *sql.Tx, scope string) error {
	return nil
}

func (Dialect) IsUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return false
	}
	return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// DSN builds the driver connection string for path. ":memory:" gives a
// private in-memory database.
func DSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?" + params
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&%s", path, params)
}

// Open opens path, applies the schema and returns a store.
func Open(ctx context.Context, path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	store := sqlstore.New(db, Dialect{})
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

var _ sqlstore.Dialect = Dialect{}
