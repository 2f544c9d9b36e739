package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
)

// SaveChartNode assigns a code to n when it has none, brings its ledger
// account in line and persists it.
func (l *Ledger) SaveChartNode(ctx context.Context, n *models.ChartNode) error {
	node := *n
	if node.Category == "" {
		node.Category = models.CategoryAsset
	}
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		prev, err := previous(ctx, node.ID, tx.GetChartNode)
		if err != nil {
			return fmt.Errorf("loading chart node %s: %w", node.ID, err)
		}
		var prevCreated *time.Time
		if prev != nil {
			prevCreated = &prev.CreatedAt
		}
		l.stamp(&node.ID, &node.CreatedAt, &node.UpdatedAt, prevCreated, nil)
		if node.ParentID == node.ID {
			return invalid(ErrInvalidDocument, "chart node", node.ID, "a node cannot be its own parent")
		}

		if err := l.assignChartCode(ctx, tx, &node); err != nil {
			return err
		}
		if err := l.syncChartNode(ctx, tx, &node); err != nil {
			return err
		}
		if err := tx.SaveChartNode(ctx, node); err != nil {
			return fmt.Errorf("saving chart node: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// SaveBankAccount assigns a BA/BC code to b when it has none, brings its
// main account in line and persists it.
func (l *Ledger) SaveBankAccount(ctx context.Context, b *models.BankAccount) error {
	bank := *b
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		prev, err := previous(ctx, bank.ID, tx.GetBankAccount)
		if err != nil {
			return fmt.Errorf("loading bank account %s: %w", bank.ID, err)
		}
		var prevCreated *time.Time
		if prev != nil {
			prevCreated = &prev.CreatedAt
		}
		l.stamp(&bank.ID, &bank.CreatedAt, &bank.UpdatedAt, prevCreated, nil)

		if err := l.assignBankCode(ctx, tx, &bank); err != nil {
			return err
		}
		if err := l.syncBankAccount(ctx, tx, &bank); err != nil {
			return err
		}
		if err := tx.SaveBankAccount(ctx, bank); err != nil {
			return fmt.Errorf("saving bank account: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*b = bank
	return nil
}

// SaveActor links an AT-coded ledger account to a on first save, keeps it in
// line afterwards and persists a.
func (l *Ledger) SaveActor(ctx context.Context, a *models.Actor) error {
	actor := *a
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		return l.saveActor(ctx, tx, &actor)
	})
	if err != nil {
		return err
	}
	*a = actor
	return nil
}

func (l *Ledger) saveActor(ctx context.Context, tx interfaces.LedgerTx, a *models.Actor) error {
	prev, err := previous(ctx, a.ID, tx.GetActor)
	if err != nil {
		return fmt.Errorf("loading actor %s: %w", a.ID, err)
	}
	var prevCreated *time.Time
	if prev != nil {
		prevCreated = &prev.CreatedAt
	}
	l.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt, prevCreated, nil)

	if err := l.syncActor(ctx, tx, a); err != nil {
		return err
	}
	if err := tx.SaveActor(ctx, *a); err != nil {
		return fmt.Errorf("saving actor: %w", err)
	}
	return nil
}

// UpsertActorByName returns the branch's actor called name, creating it when
// missing. An existing actor only has its active flag updated.
func (l *Ledger) UpsertActorByName(ctx context.Context, branch, name string, active bool) (models.Actor, error) {
	branch, name = strings.TrimSpace(branch), strings.TrimSpace(name)
	if branch == "" || name == "" {
		return models.Actor{}, invalid(ErrInvalidDocument, "actor", "", "branch and name are required")
	}

	var actor models.Actor
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		if err := tx.LockScope(ctx, codeScope(branch, "actor:"+name)); err != nil {
			return fmt.Errorf("locking actor name: %w", err)
		}
		existing, err := tx.FindActorByName(ctx, branch, name)
		if err != nil {
			return fmt.Errorf("looking up actor %q: %w", name, err)
		}
		if existing == nil {
			actor = models.Actor{Branch: branch, Name: name, Active: active}
			return l.saveActor(ctx, tx, &actor)
		}
		actor = *existing
		if actor.Active == active {
			return nil
		}
		actor.Active = active
		return l.saveActor(ctx, tx, &actor)
	})
	if err != nil {
		return models.Actor{}, err
	}
	return actor, nil
}
