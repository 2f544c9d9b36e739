// Package sqlstore implements interfaces.LedgerStore on database/sql. The
// SQL is shared; a Dialect supplies what differs between engines.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
)

// Dialect is the engine-specific part of the store.
type Dialect interface {
	Name() string
	// Schema creates every table if missing. It must be safe to run twice.
	Schema() string
	// Rebind turns ? placeholders into the engine's style.
	Rebind(query string) string
	// LockClause is appended to SELECTs that must hold row write locks.
	LockClause() string
	// LockScope blocks until tx holds an exclusive lock on scope.
	LockScope(ctx context.Context, tx *sql.Tx, scope string) error
	IsUniqueViolation(err error) bool
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a LedgerStore over a *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps db. The caller keeps ownership of db unless it calls Close.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// DB returns the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the engine dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema()); err != nil {
		return fmt.Errorf("applying %s schema: %w", s.dialect.Name(), err)
	}
	return nil
}

// WithTx runs fn inside one database transaction, rolling back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = dbTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlTx{tx: dbTx, s: s}); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", s.classify(err))
	}
	return nil
}

func (s *Store) Account(ctx context.Context, id string) (models.Account, error) {
	a, err := s.queryAccount(ctx, s.db, `WHERE id = ?`, id)
	if err != nil {
		return models.Account{}, err
	}
	if a == nil {
		return models.Account{}, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	return *a, nil
}

func (s *Store) AccountByCode(ctx context.Context, branch, code string) (models.Account, error) {
	a, err := s.queryAccount(ctx, s.db, `WHERE branch = ? AND code = ?`, branch, code)
	if err != nil {
		return models.Account{}, err
	}
	if a == nil {
		return models.Account{}, fmt.Errorf("account %s/%s: %w", branch, code, interfaces.ErrNotFound)
	}
	return *a, nil
}

func (s *Store) Accounts(ctx context.Context, branch string) ([]models.Account, error) {
	return s.queryAccounts(ctx, s.db, `WHERE branch = ? ORDER BY code`, branch)
}

const accountColumns = `id, branch, code, name, class, active, balance, created_at, updated_at`

func (s *Store) queryAccount(ctx context.Context, q queryer, where string, args ...any) (*models.Account, error) {
	accounts, err := s.queryAccounts(ctx, q, where, args...)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

func (s *Store) queryAccounts(ctx context.Context, q queryer, where string, args ...any) ([]models.Account, error) {
	query := s.dialect.Rebind(`SELECT ` + accountColumns + ` FROM accounts ` + where)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		var class string
		if err := rows.Scan(&a.ID, &a.Branch, &a.Code, &a.Name, &class, &a.Active, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		a.Class = models.Class(class)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// classify maps a driver unique violation onto interfaces.ErrUniqueViolation.
func (s *Store) classify(err error) error {
	if err != nil && s.dialect.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", interfaces.ErrUniqueViolation, err)
	}
	return err
}

// Compile-time check: Store implements LedgerStore.
var _ interfaces.LedgerStore = (*Store)(nil)
