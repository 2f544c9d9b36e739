package ledger

import (
	"context"
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// bankMainAccount returns the mirrored account id of a bank account used by
// a document in branch.
func bankMainAccount(ctx context.Context, tx interfaces.LedgerTx, entity, docID, branch, bankID string) (string, error) {
	if bankID == "" {
		return "", invalid(ErrInvalidDocument, entity, docID, "bank account is required")
	}
	bank, err := tx.GetBankAccount(ctx, bankID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", invalid(ErrInvalidDocument, entity, docID, "bank account %s does not exist", bankID)
		}
		return "", fmt.Errorf("loading bank account %s: %w", bankID, err)
	}
	if bank.Branch != branch {
		return "", invalid(ErrCrossBranchLink, entity, docID, "bank account %s is in branch %q", bankID, bank.Branch)
	}
	if bank.MainAccountID == "" {
		return "", invalid(ErrUnlinkedAccount, entity, docID, "bank account %s has no main account", bankID)
	}
	return bank.MainAccountID, nil
}

// cashTransferDeltas credits every destination and debits the source by the total.
func cashTransferDeltas(ctx context.Context, tx interfaces.LedgerTx, ct models.CashTransfer) (models.Deltas, error) {
	const entity = "cash transfer"

	from, err := bankMainAccount(ctx, tx, entity, ct.ID, ct.Branch, ct.FromAccountID)
	if err != nil {
		return nil, err
	}
	if len(ct.Items) == 0 {
		return nil, invalid(ErrEmptyDocument, entity, ct.ID, "cannot post a transfer without items")
	}

	deltas := models.Deltas{}
	var out decimal.Decimal
	for _, it := range ct.Items {
		if it.Amount.IsZero() {
			continue
		}
		to, err := bankMainAccount(ctx, tx, entity, ct.ID, ct.Branch, it.ToAccountID)
		if err != nil {
			return nil, err
		}
		deltas.Add(to, it.Amount)
		out = out.Add(it.Amount)
	}
	deltas.Add(from, out.Neg())
	return deltas, nil
}

// journalVoucherDeltas nets debit minus credit per account. Lines without an
// account or with a zero net are skipped.
func journalVoucherDeltas(jv models.JournalVoucher) (models.Deltas, error) {
	if len(jv.Items) == 0 {
		return nil, invalid(ErrEmptyDocument, "journal voucher", jv.ID, "cannot post a voucher without items")
	}
	deltas := models.Deltas{}
	for _, it := range jv.Items {
		if it.AccountID == "" {
			continue
		}
		net := it.DrAmount.Sub(it.CrAmount)
		if net.IsZero() {
			continue
		}
		deltas.Add(it.AccountID, net)
	}
	return deltas, nil
}

// chequeCounterparty resolves the single other side of a cheque.
func chequeCounterparty(c models.Cheque) (models.Counterparty, error) {
	switch {
	case c.ChartNodeID != "" && c.ActorID != "":
		return models.Counterparty{}, invalid(ErrMissingCounterparty, "cheque", c.ID, "both chart node and actor are set")
	case c.ChartNodeID != "":
		return models.Counterparty{Kind: models.CounterpartyChart, ID: c.ChartNodeID}, nil
	case c.ActorID != "":
		return models.Counterparty{Kind: models.CounterpartyActor, ID: c.ActorID}, nil
	default:
		return models.Counterparty{}, invalid(ErrMissingCounterparty, "cheque", c.ID, "set a chart node or an actor")
	}
}

func counterpartyAccount(ctx context.Context, tx interfaces.LedgerTx, c models.Cheque, cp models.Counterparty) (string, error) {
	var branch, accountID string
	switch cp.Kind {
	case models.CounterpartyChart:
		node, err := tx.GetChartNode(ctx, cp.ID)
		if err != nil {
			return "", fmt.Errorf("loading chart node %s: %w", cp.ID, err)
		}
		branch, accountID = node.Branch, node.AccountID
	case models.CounterpartyActor:
		actor, err := tx.GetActor(ctx, cp.ID)
		if err != nil {
			return "", fmt.Errorf("loading actor %s: %w", cp.ID, err)
		}
		branch, accountID = actor.Branch, actor.AccountID
	default:
		return "", invalid(ErrMissingCounterparty, "cheque", c.ID, "unknown counterparty kind %d", cp.Kind)
	}
	if branch != c.Branch {
		return "", invalid(ErrCrossBranchLink, "cheque", c.ID, "%s %s is in branch %q", cp.Kind, cp.ID, branch)
	}
	if accountID == "" {
		return "", invalid(ErrUnlinkedAccount, "cheque", c.ID, "%s %s has no ledger account", cp.Kind, cp.ID)
	}
	return accountID, nil
}

func isDirection(s models.ChequeStatus) bool {
	return s == models.ChequeIssued || s == models.ChequeReceived
}

// chequeDirection recovers whether a cheque was issued or received. Once a
// cheque is cleared its status no longer says, so fall back to the persisted
// status, then the remembered direction, then whether it has a received date.
func chequeDirection(cur models.Cheque, prev *models.Cheque) models.ChequeStatus {
	if s := cur.Status.Normalize(); isDirection(s) {
		return s
	}
	if prev != nil {
		if s := prev.Status.Normalize(); isDirection(s) {
			return s
		}
	}
	if s := cur.Direction.Normalize(); isDirection(s) {
		return s
	}
	if cur.ReceivedDate != nil {
		return models.ChequeReceived
	}
	return models.ChequeIssued
}

// chequeDeltas moves c.Amount between the bank and the counterparty. A
// received cheque debits the bank, an issued one credits it.
func chequeDeltas(ctx context.Context, tx interfaces.LedgerTx, c models.Cheque, direction models.ChequeStatus) (models.Deltas, error) {
	bank, err := bankMainAccount(ctx, tx, "cheque", c.ID, c.Branch, c.BankAccountID)
	if err != nil {
		return nil, err
	}
	cp, err := chequeCounterparty(c)
	if err != nil {
		return nil, err
	}
	other, err := counterpartyAccount(ctx, tx, c, cp)
	if err != nil {
		return nil, err
	}

	deltas := models.Deltas{}
	if c.Amount.IsZero() {
		return deltas, nil
	}
	if direction == models.ChequeReceived {
		deltas.Add(bank, c.Amount)
		deltas.Add(other, c.Amount.Neg())
	} else {
		deltas.Add(bank, c.Amount.Neg())
		deltas.Add(other, c.Amount)
	}
	return deltas, nil
}

// applyDeltas locks every target account in id order, then adds each delta.
// All targets must belong to branch.
func applyDeltas(ctx context.Context, tx interfaces.LedgerTx, branch string, deltas models.Deltas) error {
	if len(deltas) == 0 {
		return nil
	}
	ids := deltas.IDs()
	accounts, err := tx.LockAccounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("locking accounts: %w", err)
	}
	for _, account := range accounts {
		if account.Branch != branch {
			return invalid(ErrCrossBranchLink, "account", account.ID, "posting from branch %q into branch %q", branch, account.Branch)
		}
	}
	for _, account := range accounts {
		delta := deltas[account.ID]
		if delta.IsZero() {
			continue
		}
		if err := tx.SetBalance(ctx, account.ID, account.Balance.Add(delta)); err != nil {
			return fmt.Errorf("updating balance of %s: %w", account.ID, err)
		}
	}
	return nil
}
