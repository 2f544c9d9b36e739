// Package postgres is the PostgreSQL dialect of the SQL ledger store.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/sqlstore"
)

//go:embed schema.sql
var schema string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Dialect implements sqlstore.Dialect for PostgreSQL via lib/pq.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Schema() string { return schema }

func (Dialect) Rebind(query string) string { return sqlstore.RebindDollar(query) }

func (Dialect) LockClause() string { return " FOR UPDATE" }

// LockScope takes a transaction-scoped advisory lock keyed by the scope name.
// It is released on commit or rollback.
func (Dialect) LockScope(ctx context.Context, tx *sql.Tx, scope string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope); err != nil {
		return fmt.Errorf("locking scope %q: %w", scope, err)
	}
	return nil
}

func (Dialect) IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Open connects to url, checks the connection and returns a store.
func Open(ctx context.Context, url string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return sqlstore.New(db, Dialect{}), nil
}

var _ sqlstore.Dialect = Dialect{}
