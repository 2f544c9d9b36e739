package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// mirror is the part of a source entity that its ledger account copies.
type mirror struct {
	entity   string
	sourceID string
	branch   string
	code     string // empty for actors, which have no natural code
	name     string
	class    models.Class
	active   bool
	linkedID string
}

// syncMirror makes sure m has a matching Account and returns its id. It
// returns "" when branch or name/code is blank so linkage waits until the
// source is complete. newCode supplies a code when a fresh account must be
// created for a source without one.
func (l *Ledger) syncMirror(ctx context.Context, tx interfaces.LedgerTx, m mirror, newCode func() (string, error)) (string, error) {
	m.branch = strings.TrimSpace(m.branch)
	m.code = strings.TrimSpace(m.code)
	m.name = strings.TrimSpace(m.name)

	if m.branch == "" || m.name == "" {
		return "", nil
	}
	if m.code == "" && newCode == nil {
		return "", nil
	}

	if m.linkedID != "" {
		linked, err := tx.GetAccount(ctx, m.linkedID)
		if err != nil {
			return "", fmt.Errorf("loading linked account %s: %w", m.linkedID, err)
		}
		if linked.Branch != m.branch {
			return "", invalid(ErrCrossBranchLink, m.entity, m.sourceID, "account %s is in branch %q, source in %q", linked.ID, linked.Branch, m.branch)
		}
		if err := l.reconcile(ctx, tx, linked, m, true); err != nil {
			return "", err
		}
		return linked.ID, nil
	}

	if m.code != "" {
		existing, err := tx.FindAccountByCode(ctx, m.branch, m.code)
		if err != nil {
			return "", fmt.Errorf("looking up account %s/%s: %w", m.branch, m.code, err)
		}
		if existing != nil {
			if err := l.reconcile(ctx, tx, *existing, m, false); err != nil {
				return "", err
			}
			l.logger.Debug("source relinked to existing account",
				zap.String("entity", m.entity), zapBranch(m.branch), zapCode(m.code))
			return existing.ID, nil
		}
	}

	code := m.code
	if code == "" {
		var err error
		if code, err = newCode(); err != nil {
			return "", err
		}
	}

	now := l.now()
	account := models.Account{
		ID:        uuid.NewString(),
		Branch:    m.branch,
		Code:      code,
		Name:      m.name,
		Class:     m.class,
		Active:    m.active,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.CreateAccount(ctx, account); err != nil {
		return "", fmt.Errorf("creating %s account %s: %w", m.class, code, err)
	}
	l.logger.Debug("ledger account created",
		zap.String("entity", m.entity), zap.String("account_id", account.ID), zapBranch(m.branch), zapCode(code))
	return account.ID, nil
}

// reconcile copies drifted metadata onto account and writes it only when
// something changed. withCode is false when matching by code already.
func (l *Ledger) reconcile(ctx context.Context, tx interfaces.LedgerTx, account models.Account, m mirror, withCode bool) error {
	changed := false
	if withCode && m.code != "" && account.Code != m.code {
		account.Code = m.code
		changed = true
	}
	if account.Name != m.name {
		account.Name = m.name
		changed = true
	}
	if account.Class != m.class {
		account.Class = m.class
		changed = true
	}
	if account.Active != m.active {
		account.Active = m.active
		changed = true
	}
	if !changed {
		return nil
	}
	account.UpdatedAt = l.now()
	if err := tx.UpdateAccount(ctx, account); err != nil {
		return fmt.Errorf("updating account %s: %w", account.ID, err)
	}
	l.logger.Debug("ledger account reconciled", zap.String("account_id", account.ID), zapCode(account.Code))
	return nil
}

func (l *Ledger) syncChartNode(ctx context.Context, tx interfaces.LedgerTx, n *models.ChartNode) error {
	id, err := l.syncMirror(ctx, tx, mirror{
		entity:   "chart node",
		sourceID: n.ID,
		branch:   n.Branch,
		code:     n.Code,
		name:     n.Name,
		class:    models.ClassCOA,
		active:   n.Active,
		linkedID: n.AccountID,
	}, nil)
	if err != nil {
		return err
	}
	if id != "" {
		n.AccountID = id
	}
	return nil
}

func (l *Ledger) syncBankAccount(ctx context.Context, tx interfaces.LedgerTx, b *models.BankAccount) error {
	id, err := l.syncMirror(ctx, tx, mirror{
		entity:   "bank account",
		sourceID: b.ID,
		branch:   b.Branch,
		code:     b.Code,
		name:     b.DisplayName,
		class:    models.ClassBank,
		active:   b.Active,
		linkedID: b.MainAccountID,
	}, nil)
	if err != nil {
		return err
	}
	if id != "" {
		b.MainAccountID = id
	}
	return nil
}

func (l *Ledger) syncActor(ctx context.Context, tx interfaces.LedgerTx, a *models.Actor) error {
	branch := strings.TrimSpace(a.Branch)
	id, err := l.syncMirror(ctx, tx, mirror{
		entity:   "actor",
		sourceID: a.ID,
		branch:   branch,
		name:     a.Name,
		class:    models.ClassActor,
		active:   a.Active,
		linkedID: a.AccountID,
	}, func() (string, error) {
		return l.nextActorAccountCode(ctx, tx, branch)
	})
	if err != nil {
		return err
	}
	if id != "" {
		a.AccountID = id
	}
	return nil
}
