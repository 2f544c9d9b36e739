package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

const (
	KindCashTransfer   = "cash_transfer"
	KindJournalVoucher = "journal_voucher"
	KindCheque         = "cheque"
)

// previous reads the persisted row a save is about to replace. A new
// document has none.
func previous[T any](ctx context.Context, id string, get func(context.Context, string) (T, error)) (*T, error) {
	if id == "" {
		return nil, nil
	}
	v, err := get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// stamp fills ids, timestamps and the approval time.
func (l *Ledger) stamp(id *string, created, updated *time.Time, prevCreated *time.Time, a *models.Approval) {
	now := l.now()
	if *id == "" {
		*id = uuid.NewString()
	}
	switch {
	case prevCreated != nil:
		*created = *prevCreated
	case created.IsZero():
		*created = now
	}
	*updated = now
	if a != nil && a.Approved && a.ApprovedAt == nil {
		a.ApprovedAt = &now
	}
}

// lockDocument serialises saves of one document until the transaction ends,
// so the previous snapshot cannot go stale before the balances move.
func lockDocument(ctx context.Context, tx interfaces.LedgerTx, kind, id string) error {
	if id == "" {
		return nil
	}
	if err := tx.LockScope(ctx, "doc:"+kind+":"+id); err != nil {
		return fmt.Errorf("locking %s %s: %w", kind, id, err)
	}
	return nil
}

func orient(d models.Deltas, t models.Transition) models.Deltas {
	if t == models.TransitionReverse {
		return d.Negate()
	}
	return d
}

func requireBranch(entity, id, branch string) error {
	if strings.TrimSpace(branch) == "" {
		return invalid(ErrInvalidDocument, entity, id, "branch is required")
	}
	return nil
}

// SaveCashTransfer persists ct with its items and posts or reverses it when
// its posted state changes.
func (l *Ledger) SaveCashTransfer(ctx context.Context, ct *models.CashTransfer) (models.Transition, error) {
	doc := *ct
	doc.Items = append([]models.CashTransferItem(nil), ct.Items...)
	if err := requireBranch("cash transfer", doc.ID, doc.Branch); err != nil {
		return models.TransitionNone, err
	}
	if doc.FromAccountID == "" {
		return models.TransitionNone, invalid(ErrInvalidDocument, "cash transfer", doc.ID, "source bank account is required")
	}
	for i, it := range doc.Items {
		if it.ToAccountID == "" {
			return models.TransitionNone, invalid(ErrInvalidDocument, "cash transfer", doc.ID, "item %d has no destination bank account", i+1)
		}
	}

	var p posting
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := lockDocument(ctx, tx, KindCashTransfer, doc.ID); err != nil {
			return err
		}
		prev, err := previous(ctx, doc.ID, tx.GetCashTransfer)
		if err != nil {
			return fmt.Errorf("loading cash transfer %s: %w", doc.ID, err)
		}
		wasPosted := prev != nil && prev.IsPosted()
		if wasPosted && !sameTransferLines(*prev, doc) {
			return invalid(ErrPostedDocumentLocked, "cash transfer", doc.ID, "unpost it before changing accounts or amounts")
		}

		var prevCreated *time.Time
		if prev != nil {
			prevCreated = &prev.CreatedAt
		}
		l.stamp(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt, prevCreated, &doc.Approval)
		doc.Total = decimal.Zero
		for i := range doc.Items {
			if doc.Items[i].ID == "" {
				doc.Items[i].ID = uuid.NewString()
			}
			doc.Total = doc.Total.Add(doc.Items[i].Amount)
		}

		if err := tx.SaveCashTransfer(ctx, doc); err != nil {
			return fmt.Errorf("saving cash transfer: %w", err)
		}

		p.transition = models.TransitionBetween(wasPosted, doc.IsPosted())
		if p.transition == models.TransitionNone {
			return nil
		}
		deltas, err := cashTransferDeltas(ctx, tx, doc)
		if err != nil {
			return err
		}
		p.deltas = orient(deltas, p.transition)
		return applyDeltas(ctx, tx, doc.Branch, p.deltas)
	})
	if err != nil {
		return models.TransitionNone, err
	}
	*ct = doc
	l.announce(ctx, KindCashTransfer, doc.ID, doc.Branch, p)
	return p.transition, nil
}

// SaveJournalVoucher persists jv with its items and posts or reverses it
// when its posted state changes.
func (l *Ledger) SaveJournalVoucher(ctx context.Context, jv *models.JournalVoucher) (models.Transition, error) {
	doc := *jv
	doc.Items = append([]models.JournalVoucherItem(nil), jv.Items...)
	if err := requireBranch("journal voucher", doc.ID, doc.Branch); err != nil {
		return models.TransitionNone, err
	}

	var p posting
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := lockDocument(ctx, tx, KindJournalVoucher, doc.ID); err != nil {
			return err
		}
		prev, err := previous(ctx, doc.ID, tx.GetJournalVoucher)
		if err != nil {
			return fmt.Errorf("loading journal voucher %s: %w", doc.ID, err)
		}
		wasPosted := prev != nil && prev.IsPosted()
		if wasPosted && !sameVoucherLines(*prev, doc) {
			return invalid(ErrPostedDocumentLocked, "journal voucher", doc.ID, "unpost it before changing lines")
		}

		var prevCreated *time.Time
		if prev != nil {
			prevCreated = &prev.CreatedAt
		}
		l.stamp(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt, prevCreated, &doc.Approval)
		doc.Total = decimal.Zero
		for i := range doc.Items {
			if doc.Items[i].ID == "" {
				doc.Items[i].ID = uuid.NewString()
			}
			doc.Total = doc.Total.Add(doc.Items[i].DrAmount)
		}

		if err := tx.SaveJournalVoucher(ctx, doc); err != nil {
			return fmt.Errorf("saving journal voucher: %w", err)
		}

		p.transition = models.TransitionBetween(wasPosted, doc.IsPosted())
		if p.transition == models.TransitionNone {
			return nil
		}
		deltas, err := journalVoucherDeltas(doc)
		if err != nil {
			return err
		}
		p.deltas = orient(deltas, p.transition)
		return applyDeltas(ctx, tx, doc.Branch, p.deltas)
	})
	if err != nil {
		return models.TransitionNone, err
	}
	*jv = doc
	l.announce(ctx, KindJournalVoucher, doc.ID, doc.Branch, p)
	return p.transition, nil
}

// SaveCheque persists c and posts or reverses it when its posted state
// (approved, not voided, cleared) changes.
func (l *Ledger) SaveCheque(ctx context.Context, c *models.Cheque) (models.Transition, error) {
	doc := *c
	if err := requireBranch("cheque", doc.ID, doc.Branch); err != nil {
		return models.TransitionNone, err
	}
	if doc.Status == "" {
		doc.Status = models.ChequeReceived
	}

	var p posting
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := lockDocument(ctx, tx, KindCheque, doc.ID); err != nil {
			return err
		}
		prev, err := previous(ctx, doc.ID, tx.GetCheque)
		if err != nil {
			return fmt.Errorf("loading cheque %s: %w", doc.ID, err)
		}
		wasPosted := prev != nil && prev.IsPosted()
		if wasPosted && !sameChequeTerms(*prev, doc) {
			return invalid(ErrPostedDocumentLocked, "cheque", doc.ID, "unpost it before changing bank, counterparty, amount or dates")
		}

		var prevCreated *time.Time
		if prev != nil {
			prevCreated = &prev.CreatedAt
		}
		l.stamp(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt, prevCreated, &doc.Approval)
		doc.Total = doc.Amount
		switch s := doc.Status.Normalize(); {
		case isDirection(s):
			doc.Direction = s
		case prev != nil && isDirection(prev.Status.Normalize()):
			doc.Direction = prev.Status.Normalize()
		case prev != nil:
			doc.Direction = prev.Direction
		}
		if doc.IsPosted() {
			doc.Direction = chequeDirection(doc, prev)
		}

		if err := tx.SaveCheque(ctx, doc); err != nil {
			return fmt.Errorf("saving cheque: %w", err)
		}

		p.transition = models.TransitionBetween(wasPosted, doc.IsPosted())
		if p.transition == models.TransitionNone {
			return nil
		}
		// A reversal undoes what was posted, so its sign comes from the
		// persisted cheque, not from the status it is leaving for.
		direction := chequeDirection(doc, prev)
		if p.transition == models.TransitionReverse {
			direction = chequeDirection(*prev, nil)
		}
		deltas, err := chequeDeltas(ctx, tx, doc, direction)
		if err != nil {
			return err
		}
		p.deltas = orient(deltas, p.transition)
		return applyDeltas(ctx, tx, doc.Branch, p.deltas)
	})
	if err != nil {
		return models.TransitionNone, err
	}
	*c = doc
	l.announce(ctx, KindCheque, doc.ID, doc.Branch, p)
	return p.transition, nil
}

func sameTransferLines(a, b models.CashTransfer) bool {
	if a.Branch != b.Branch || a.FromAccountID != b.FromAccountID || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].ToAccountID != b.Items[i].ToAccountID || !a.Items[i].Amount.Equal(b.Items[i].Amount) {
			return false
		}
	}
	return true
}

func sameVoucherLines(a, b models.JournalVoucher) bool {
	if a.Branch != b.Branch || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.AccountID != y.AccountID || !x.DrAmount.Equal(y.DrAmount) || !x.CrAmount.Equal(y.CrAmount) {
			return false
		}
	}
	return true
}

func sameChequeTerms(a, b models.Cheque) bool {
	return a.Branch == b.Branch &&
		a.BankAccountID == b.BankAccountID &&
		a.ChartNodeID == b.ChartNodeID &&
		a.ActorID == b.ActorID &&
		a.Amount.Equal(b.Amount) &&
		sameDay(a.ReceivedDate, b.ReceivedDate)
}

func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
