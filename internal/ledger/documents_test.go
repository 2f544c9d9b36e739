package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore notes scope locks and document reads made inside transactions.
type recordingStore struct {
	interfaces.LedgerStore
	mu    sync.Mutex
	calls []string
}

func (s *recordingStore) WithTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	return s.LedgerStore.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		return fn(&recordingTx{LedgerTx: tx, store: s})
	})
}

func (s *recordingStore) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingStore) take() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := s.calls
	s.calls = nil
	return calls
}

type recordingTx struct {
	interfaces.LedgerTx
	store *recordingStore
}

func (t *recordingTx) LockScope(ctx context.Context, scope string) error {
	t.store.record("lock " + scope)
	return t.LedgerTx.LockScope(ctx, scope)
}

func (t *recordingTx) GetCashTransfer(ctx context.Context, id string) (models.CashTransfer, error) {
	t.store.record("get cash_transfer " + id)
	return t.LedgerTx.GetCashTransfer(ctx, id)
}

func (t *recordingTx) GetJournalVoucher(ctx context.Context, id string) (models.JournalVoucher, error) {
	t.store.record("get journal_voucher " + id)
	return t.LedgerTx.GetJournalVoucher(ctx, id)
}

func (t *recordingTx) GetCheque(ctx context.Context, id string) (models.Cheque, error) {
	t.store.record("get cheque " + id)
	return t.LedgerTx.GetCheque(ctx, id)
}

func TestDocumentSavesLockBeforeReadingPrevious(t *testing.T) {
	store := &recordingStore{LedgerStore: memory.NewMemoryLedgerStore()}
	f := newFixture(t, store)
	bankA := f.bank(t, "MAIN", models.BankTypeBank, "Bank A")
	bankB := f.bank(t, "MAIN", models.BankTypeBank, "Bank B")
	actor := f.actor(t, "MAIN", "Ram")

	ct := transfer(bankA, bankB, "10")
	_, err := f.ledger.SaveCashTransfer(f.ctx, &ct)
	require.NoError(t, err)
	jv := models.JournalVoucher{Branch: "MAIN", Items: []models.JournalVoucherItem{{AccountID: bankA.MainAccountID, DrAmount: amount("5")}}}
	_, err = f.ledger.SaveJournalVoucher(f.ctx, &jv)
	require.NoError(t, err)
	c := models.Cheque{Branch: "MAIN", BankAccountID: bankA.ID, ActorID: actor.ID, Amount: amount("5")}
	_, err = f.ledger.SaveCheque(f.ctx, &c)
	require.NoError(t, err)
	store.take()

	tests := []struct {
		name string
		save func() error
		want []string
	}{
		{"cash transfer", func() error {
			_, err := f.ledger.SaveCashTransfer(f.ctx, &ct)
			return err
		}, []string{"lock doc:cash_transfer:" + ct.ID, "get cash_transfer " + ct.ID}},
		{"journal voucher", func() error {
			_, err := f.ledger.SaveJournalVoucher(f.ctx, &jv)
			return err
		}, []string{"lock doc:journal_voucher:" + jv.ID, "get journal_voucher " + jv.ID}},
		{"cheque", func() error {
			_, err := f.ledger.SaveCheque(f.ctx, &c)
			return err
		}, []string{"lock doc:cheque:" + c.ID, "get cheque " + c.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.save())
			calls := store.take()
			require.GreaterOrEqual(t, len(calls), 2)
			assert.Equal(t, tt.want, calls[:2])
		})
	}
}

func TestNewDocumentTakesNoDocumentLock(t *testing.T) {
	store := &recordingStore{LedgerStore: memory.NewMemoryLedgerStore()}
	f := newFixture(t, store)
	bankA := f.bank(t, "MAIN", models.BankTypeBank, "Bank A")
	bankB := f.bank(t, "MAIN", models.BankTypeBank, "Bank B")
	store.take()

	ct := transfer(bankA, bankB, "10")
	_, err := f.ledger.SaveCashTransfer(f.ctx, &ct)
	require.NoError(t, err)
	assert.Empty(t, store.take(), "a fresh id cannot be contended")
}

func TestConcurrentApprovalPostsOnce(t *testing.T) {
	const n = 8
	eachStore(t, func(t *testing.T, f *fixture) {
		bankA := f.bank(t, "MAIN", models.BankTypeBank, "Bank A")
		bankB := f.bank(t, "MAIN", models.BankTypeBank, "Bank B")
		draft := transfer(bankA, bankB, "500.00")
		_, err := f.ledger.SaveCashTransfer(f.ctx, &draft)
		require.NoError(t, err)

		var wg sync.WaitGroup
		transitions := make([]models.Transition, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ct := draft
				ct.Approved = true
				transitions[i], errs[i] = f.ledger.SaveCashTransfer(f.ctx, &ct)
			}(i)
		}
		wg.Wait()

		posts := 0
		for i := range errs {
			require.NoError(t, errs[i])
			if transitions[i] == models.TransitionPost {
				posts++
			} else {
				assert.Equal(t, models.TransitionNone, transitions[i])
			}
		}
		assert.Equal(t, 1, posts)
		f.assertBalance(t, bankA.MainAccountID, "-500.00")
		f.assertBalance(t, bankB.MainAccountID, "500.00")
	})
}

func TestChequeUnclearedToOppositeStatusReverses(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		bank := f.bank(t, "MAIN", models.BankTypeBank, "Nabil")
		actor := f.actor(t, "MAIN", "Ram Bahadur")

		c := models.Cheque{
			Branch:        "MAIN",
			BankAccountID: bank.ID,
			ActorID:       actor.ID,
			Amount:        amount("400"),
			Status:        models.ChequeReceived,
			Approval:      models.Approval{Approved: true},
		}
		_, err := f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)

		c.Status = models.ChequeCleared
		tr, err := f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)
		require.Equal(t, models.TransitionPost, tr)
		f.assertBalance(t, bank.MainAccountID, "400")
		f.assertBalance(t, actor.AccountID, "-400")

		c.Status = models.ChequeIssued
		tr, err = f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)
		assert.Equal(t, models.TransitionReverse, tr)
		assert.Equal(t, models.ChequeIssued, c.Direction)
		f.assertBalance(t, bank.MainAccountID, "0")
		f.assertBalance(t, actor.AccountID, "0")

		// Clearing it again now posts it the issued way round.
		c.Status = models.ChequeCleared
		tr, err = f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)
		assert.Equal(t, models.TransitionPost, tr)
		f.assertBalance(t, bank.MainAccountID, "-400")
		f.assertBalance(t, actor.AccountID, "400")
	})
}

func TestPostedChequeRemembersResolvedDirection(t *testing.T) {
	eachStore(t, func(t *testing.T, f *fixture) {
		bank := f.bank(t, "MAIN", models.BankTypeBank, "Nabil")
		actor := f.actor(t, "MAIN", "Customer")
		received := testNow.Add(-24 * time.Hour)

		c := models.Cheque{
			Branch: "MAIN", BankAccountID: bank.ID, ActorID: actor.ID, ReceivedDate: &received,
			Amount: amount("75"), Status: models.ChequeCleared, Approval: models.Approval{Approved: true},
		}
		_, err := f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)
		assert.Equal(t, models.ChequeReceived, c.Direction)

		c.Status = models.ChequeIssued
		tr, err := f.ledger.SaveCheque(f.ctx, &c)
		require.NoError(t, err)
		assert.Equal(t, models.TransitionReverse, tr)
		f.assertBalance(t, bank.MainAccountID, "0")
		f.assertBalance(t, actor.AccountID, "0")
	})
}
