package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/sqlstore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func account(id, code string) models.Account {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.Account{
		ID:        id,
		Branch:    "b1",
		Code:      code,
		Name:      "Account " + code,
		Class:     models.ClassCOA,
		Active:    true,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestMigrateTwice(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateAccount(ctx, account("a1", "1000")); err != nil {
			return err
		}
		return tx.SetBalance(ctx, "a1", decimal.RequireFromString("1234.56"))
	})
	require.NoError(t, err)

	got, err := store.AccountByCode(ctx, "b1", "1000")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)
	assert.True(t, got.Active)
	assert.Equal(t, models.ClassCOA, got.Class)
	assert.True(t, got.Balance.Equal(decimal.RequireFromString("1234.56")), got.Balance.String())

	_, err = store.Account(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestUniqueCodeViolation(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateAccount(ctx, account("a1", "1000")); err != nil {
			return err
		}
		return tx.CreateAccount(ctx, account("a2", "1000"))
	})
	assert.ErrorIs(t, err, interfaces.ErrUniqueViolation)

	accounts, err := store.Accounts(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, accounts, "failed transaction must not leave rows behind")
}

func TestRollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateAccount(ctx, account("a1", "1000")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Account(ctx, "a1")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestLockAccountsKeepsOrderAndReportsMissing(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		for _, a := range []models.Account{account("a1", "1000"), account("a2", "1010")} {
			if err := tx.CreateAccount(ctx, a); err != nil {
				return err
			}
		}
		got, err := tx.LockAccounts(ctx, []string{"a2", "a1"})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a2", got[0].ID)
		assert.Equal(t, "a1", got[1].ID)

		_, err = tx.LockAccounts(ctx, []string{"a1", "nope"})
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestChequeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	received := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.CreateAccount(ctx, account("main", "BA00001")); err != nil {
			return err
		}
		if err := tx.SaveBankAccount(ctx, models.BankAccount{
			ID: "bank1", Branch: "b1", Type: models.BankTypeBank, Code: "BA00001",
			MainAccountID: "main", Active: true, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return err
		}
		if err := tx.SaveActor(ctx, models.Actor{ID: "act1", Branch: "b1", Name: "Acme", Active: true, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.SaveCheque(ctx, models.Cheque{
			ID: "c1", Branch: "b1", ChequeNo: "000123", BankAccountID: "bank1", ActorID: "act1",
			ReceivedDate: &received, Amount: decimal.NewFromInt(200), Status: models.ChequeReceived,
			Direction: models.ChequeReceived, Total: decimal.NewFromInt(200),
			Approval: models.Approval{Approved: true, ApprovedBy: "ops", ApprovedAt: &now},
			CreatedAt: now, UpdatedAt: now,
		})
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		c, err := tx.GetCheque(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "act1", c.ActorID)
		assert.Empty(t, c.ChartNodeID)
		assert.Nil(t, c.ChequeDate)
		require.NotNil(t, c.ReceivedDate)
		assert.True(t, c.ReceivedDate.Equal(received))
		assert.True(t, c.Amount.Equal(decimal.NewFromInt(200)))
		assert.Equal(t, models.ChequeReceived, c.Direction)
		assert.True(t, c.Approved)
		assert.Nil(t, c.VoidedAt)

		_, err = tx.GetCheque(ctx, "c2")
		assert.ErrorIs(t, err, interfaces.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestCashTransferItemsReplaced(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	err := store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		for _, id := range []string{"from", "to1", "to2"} {
			if err := tx.SaveBankAccount(ctx, models.BankAccount{
				ID: id, Branch: "b1", Type: models.BankTypeCash, Active: true, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
		}
		ct := models.CashTransfer{
			ID: "ct1", Branch: "b1", TransferDate: now, FromAccountID: "from",
			Items: []models.CashTransferItem{
				{ID: "i1", ToAccountID: "to1", Amount: decimal.NewFromInt(10)},
				{ID: "i2", ToAccountID: "to2", Amount: decimal.NewFromInt(20)},
			},
			CreatedAt: now, UpdatedAt: now,
		}
		if err := tx.SaveCashTransfer(ctx, ct); err != nil {
			return err
		}
		ct.Items = ct.Items[1:]
		return tx.SaveCashTransfer(ctx, ct)
	})
	require.NoError(t, err)

	err = store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		ct, err := tx.GetCashTransfer(ctx, "ct1")
		require.NoError(t, err)
		require.Len(t, ct.Items, 1)
		assert.Equal(t, "to2", ct.Items[0].ToAccountID)
		return nil
	})
	require.NoError(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?"+params, DSN(":memory:"))
	assert.Equal(t, "file:/tmp/l.db?_journal_mode=WAL&"+params, DSN("/tmp/l.db"))
}
