package interfaces

import (
	"context"
	"errors"

	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by Get lookups and read queries when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrUniqueViolation is returned when a write collides with a (branch, code) key.
	ErrUniqueViolation = errors.New("unique violation")
)

// LedgerStore runs atomic units of work and answers read-only registry queries.
type LedgerStore interface {
	// WithTx runs fn in one transaction. The transaction commits only if fn
	// returns nil; otherwise nothing fn did is kept.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error

	Account(ctx context.Context, id string) (models.Account, error)
	AccountByCode(ctx context.Context, branch, code string) (models.Account, error)
	Accounts(ctx context.Context, branch string) ([]models.Account, error)
}

// LedgerTx is everything the ledger does inside a transaction.
type LedgerTx interface {
	// LockScope serialises code assignment for a scope until the transaction ends.
	LockScope(ctx context.Context, scope string) error
	// AccountCodesWithPrefix returns and write-locks account codes in branch starting with prefix.
	AccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error)
	// BankAccountCodesWithPrefix returns and write-locks bank account codes in branch starting with prefix.
	BankAccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error)
	// ChartCodesInRange returns and write-locks chart node codes in [lo, hi] (string order).
	ChartCodesInRange(ctx context.Context, branch, lo, hi string) ([]string, error)

	GetAccount(ctx context.Context, id string) (models.Account, error)
	// FindAccountByCode returns nil when no account has the code.
	FindAccountByCode(ctx context.Context, branch, code string) (*models.Account, error)
	CreateAccount(ctx context.Context, account models.Account) error
	// UpdateAccount writes code, name, class and active. Balance is never touched.
	UpdateAccount(ctx context.Context, account models.Account) error
	// LockAccounts write-locks the accounts in the order given and returns them.
	LockAccounts(ctx context.Context, ids []string) ([]models.Account, error)
	SetBalance(ctx context.Context, id string, balance decimal.Decimal) error

	GetChartNode(ctx context.Context, id string) (models.ChartNode, error)
	SaveChartNode(ctx context.Context, node models.ChartNode) error
	GetBankAccount(ctx context.Context, id string) (models.BankAccount, error)
	SaveBankAccount(ctx context.Context, account models.BankAccount) error
	GetActor(ctx context.Context, id string) (models.Actor, error)
	// FindActorByName returns nil when the branch has no actor with the name.
	FindActorByName(ctx context.Context, branch, name string) (*models.Actor, error)
	SaveActor(ctx context.Context, actor models.Actor) error

	GetCashTransfer(ctx context.Context, id string) (models.CashTransfer, error)
	SaveCashTransfer(ctx context.Context, ct models.CashTransfer) error
	GetJournalVoucher(ctx context.Context, id string) (models.JournalVoucher, error)
	SaveJournalVoucher(ctx context.Context, jv models.JournalVoucher) error
	GetCheque(ctx context.Context, id string) (models.Cheque, error)
	SaveCheque(ctx context.Context, c models.Cheque) error
}
