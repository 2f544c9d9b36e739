package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

type sqlTx struct {
	tx *sql.Tx
	s  *Store
}

func (t *sqlTx) exec(ctx context.Context, what, query string, args ...any) error {
	if _, err := t.tx.ExecContext(ctx, t.s.dialect.Rebind(query), args...); err != nil {
		return fmt.Errorf("%s: %w", what, t.s.classify(err))
	}
	return nil
}

func (t *sqlTx) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, t.s.dialect.Rebind(query+t.s.dialect.LockClause()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (t *sqlTx) LockScope(ctx context.Context, scope string) error {
	return t.s.dialect.LockScope(ctx, t.tx, scope)
}

func (t *sqlTx) AccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error) {
	return t.strings(ctx, `SELECT code FROM accounts WHERE branch = ? AND code LIKE ?`, branch, prefix+"%")
}

func (t *sqlTx) BankAccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error) {
	return t.strings(ctx, `SELECT code FROM bank_accounts WHERE branch = ? AND code IS NOT NULL AND code LIKE ?`, branch, prefix+"%")
}

func (t *sqlTx) ChartCodesInRange(ctx context.Context, branch, lo, hi string) ([]string, error) {
	return t.strings(ctx, `SELECT code FROM chart_nodes WHERE branch = ? AND code IS NOT NULL AND code >= ? AND code <= ?`, branch, lo, hi)
}

func (t *sqlTx) GetAccount(ctx context.Context, id string) (models.Account, error) {
	a, err := t.s.queryAccount(ctx, t.tx, `WHERE id = ?`, id)
	if err != nil {
		return models.Account{}, err
	}
	if a == nil {
		return models.Account{}, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	return *a, nil
}

func (t *sqlTx) FindAccountByCode(ctx context.Context, branch, code string) (*models.Account, error) {
	return t.s.queryAccount(ctx, t.tx, `WHERE branch = ? AND code = ?`, branch, code)
}

func (t *sqlTx) CreateAccount(ctx context.Context, a models.Account) error {
	return t.exec(ctx, "inserting account",
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Branch, a.Code, a.Name, string(a.Class), a.Active, a.Balance, a.CreatedAt, a.UpdatedAt)
}

func (t *sqlTx) UpdateAccount(ctx context.Context, a models.Account) error {
	return t.exec(ctx, "updating account",
		`UPDATE accounts SET code = ?, name = ?, class = ?, active = ?, updated_at = ? WHERE id = ?`,
		a.Code, a.Name, string(a.Class), a.Active, a.UpdatedAt, a.ID)
}

func (t *sqlTx) LockAccounts(ctx context.Context, ids []string) ([]models.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	where := `WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id` + t.s.dialect.LockClause()
	accounts, err := t.s.queryAccounts(ctx, t.tx, where, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	out := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
		}
		out = append(out, a)
	}
	return out, nil
}

func (t *sqlTx) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return t.exec(ctx, "updating balance", `UPDATE accounts SET balance = ? WHERE id = ?`, balance, id)
}

const chartNodeColumns = `id, branch, code, name, description, category, parent_id, is_group, is_system, active, account_id, created_at, updated_at`

func (t *sqlTx) GetChartNode(ctx context.Context, id string) (models.ChartNode, error) {
	var n models.ChartNode
	var code, parent, account sql.NullString
	var category string
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT `+chartNodeColumns+` FROM chart_nodes WHERE id = ?`), id).Scan(
		&n.ID, &n.Branch, &code, &n.Name, &n.Description, &category, &parent,
		&n.IsGroup, &n.IsSystem, &n.Active, &account, &n.CreatedAt, &n.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChartNode{}, fmt.Errorf("chart node %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return models.ChartNode{}, fmt.Errorf("loading chart node: %w", err)
	}
	n.Code, n.ParentID, n.AccountID = code.String, parent.String, account.String
	n.Category = models.Category(category)
	return n, nil
}

func (t *sqlTx) SaveChartNode(ctx context.Context, n models.ChartNode) error {
	return t.exec(ctx, "saving chart node",
		`INSERT INTO chart_nodes (`+chartNodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, code = excluded.code, name = excluded.name,
			description = excluded.description, category = excluded.category,
			parent_id = excluded.parent_id, is_group = excluded.is_group, is_system = excluded.is_system,
			active = excluded.active, account_id = excluded.account_id, updated_at = excluded.updated_at`,
		n.ID, n.Branch, nullString(n.Code), n.Name, n.Description, string(n.Category), nullString(n.ParentID),
		n.IsGroup, n.IsSystem, n.Active, nullString(n.AccountID), n.CreatedAt, n.UpdatedAt)
}

const bankAccountColumns = `id, branch, type, bank_name, display_name, code, account_name, account_number, currency, main_account_id, description, active, created_at, updated_at`

func (t *sqlTx) GetBankAccount(ctx context.Context, id string) (models.BankAccount, error) {
	var b models.BankAccount
	var typ string
	var code, main sql.NullString
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT `+bankAccountColumns+` FROM bank_accounts WHERE id = ?`), id).Scan(
		&b.ID, &b.Branch, &typ, &b.BankName, &b.DisplayName, &code, &b.AccountName, &b.AccountNumber,
		&b.Currency, &main, &b.Description, &b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BankAccount{}, fmt.Errorf("bank account %s: %w", id, interfaces.ErrNotFound)
	}
	if err != nil {
		return models.BankAccount{}, fmt.Errorf("loading bank account: %w", err)
	}
	b.Type = models.BankType(typ)
	b.Code, b.MainAccountID = code.String, main.String
	return b, nil
}

func (t *sqlTx) SaveBankAccount(ctx context.Context, b models.BankAccount) error {
	return t.exec(ctx, "saving bank account",
		`INSERT INTO bank_accounts (`+bankAccountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, type = excluded.type, bank_name = excluded.bank_name,
			display_name = excluded.display_name, code = excluded.code, account_name = excluded.account_name,
			account_number = excluded.account_number, currency = excluded.currency,
			main_account_id = excluded.main_account_id, description = excluded.description,
			active = excluded.active, updated_at = excluded.updated_at`,
		b.ID, b.Branch, string(b.Type), b.BankName, b.DisplayName, nullString(b.Code), b.AccountName, b.AccountNumber,
		b.Currency, nullString(b.MainAccountID), b.Description, b.Active, b.CreatedAt, b.UpdatedAt)
}

const actorColumns = `id, branch, name, active, account_id, created_at, updated_at`

func (t *sqlTx) queryActor(ctx context.Context, where string, args ...any) (*models.Actor, error) {
	var a models.Actor
	var account sql.NullString
	err := t.tx.QueryRowContext(ctx, t.s.dialect.Rebind(`SELECT `+actorColumns+` FROM actors `+where), args...).Scan(
		&a.ID, &a.Branch, &a.Name, &a.Active, &account, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading actor: %w", err)
	}
	a.AccountID = account.String
	return &a, nil
}

func (t *sqlTx) GetActor(ctx context.Context, id string) (models.Actor, error) {
	a, err := t.queryActor(ctx, `WHERE id = ?`, id)
	if err != nil {
		return models.Actor{}, err
	}
	if a == nil {
		return models.Actor{}, fmt.Errorf("actor %s: %w", id, interfaces.ErrNotFound)
	}
	return *a, nil
}

func (t *sqlTx) FindActorByName(ctx context.Context, branch, name string) (*models.Actor, error) {
	return t.queryActor(ctx, `WHERE branch = ? AND name = ? ORDER BY created_at LIMIT 1`, branch, name)
}

func (t *sqlTx) SaveActor(ctx context.Context, a models.Actor) error {
	return t.exec(ctx, "saving actor",
		`INSERT INTO actors (`+actorColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			branch = excluded.branch, name = excluded.name, active = excluded.active,
			account_id = excluded.account_id, updated_at = excluded.updated_at`,
		a.ID, a.Branch, a.Name, a.Active, nullString(a.AccountID), a.CreatedAt, a.UpdatedAt)
}
