package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultTopic is where DocumentPosted events go unless WithPublisher names another.
const DefaultTopic = "ledger.document_posted"

// Ledger keeps the account registry in step with its source entities and
// posts transaction documents into it. Every exported save runs as one
// store transaction.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher
	topic     string
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPublisher sends a DocumentPosted event to topic after every committed
// posting or reversal. An empty topic means DefaultTopic.
func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = p
		if topic != "" {
			l.topic = topic
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLedger builds a Ledger over store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		topic:  DefaultTopic,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Account returns a registry row by id.
func (l *Ledger) Account(ctx context.Context, id string) (models.Account, error) {
	return l.store.Account(ctx, id)
}

// AccountByCode returns a registry row by (branch, code).
func (l *Ledger) AccountByCode(ctx context.Context, branch, code string) (models.Account, error) {
	return l.store.AccountByCode(ctx, branch, code)
}

// Accounts lists a branch's registry ordered by code.
func (l *Ledger) Accounts(ctx context.Context, branch string) ([]models.Account, error) {
	return l.store.Accounts(ctx, branch)
}

// CreateAccount adds a registry row with a zero balance. It fails with
// ErrUniqueViolation when the branch already uses code.
func (l *Ledger) CreateAccount(ctx context.Context, branch, code, name string, class models.Class) (models.Account, error) {
	branch, code, name = strings.TrimSpace(branch), strings.TrimSpace(code), strings.TrimSpace(name)
	if branch == "" || code == "" || name == "" {
		return models.Account{}, invalid(ErrInvalidDocument, "account", "", "branch, code and name are required")
	}
	switch class {
	case models.ClassCOA, models.ClassBank, models.ClassActor:
	default:
		return models.Account{}, invalid(ErrInvalidDocument, "account", "", "unknown class %q", class)
	}

	now := l.now()
	account := models.Account{
		ID:        uuid.NewString(),
		Branch:    branch,
		Code:      code,
		Name:      name,
		Class:     class,
		Active:    true,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := l.store.WithTx(ctx, func(tx interfaces.LedgerTx) error {
		return tx.CreateAccount(ctx, account)
	})
	if err != nil {
		return models.Account{}, fmt.Errorf("creating account %s/%s: %w", branch, code, err)
	}
	return account, nil
}

// posting is what a document save did to balances.
type posting struct {
	transition models.Transition
	deltas     models.Deltas
}

// announce logs and publishes a committed posting. Publishing is best effort;
// the save has already committed.
func (l *Ledger) announce(ctx context.Context, kind, id, branch string, p posting) {
	if p.transition == models.TransitionNone {
		return
	}
	msg := "document posted"
	if p.transition == models.TransitionReverse {
		msg = "document reversed"
	}
	l.logger.Info(msg,
		zap.String("kind", kind),
		zap.String("document_id", id),
		zapBranch(branch),
		zap.Int("accounts", len(p.deltas)),
	)
	if l.publisher == nil {
		return
	}
	event := events.DocumentPosted{
		Kind:       kind,
		DocumentID: id,
		Branch:     branch,
		Transition: string(p.transition),
		Deltas:     p.deltas,
		OccurredAt: l.now(),
	}
	if err := l.publisher.Publish(ctx, l.topic, id, event); err != nil {
		l.logger.Warn("publishing document event failed",
			zap.String("kind", kind), zap.String("document_id", id), zap.Error(err))
	}
}

func zapBranch(branch string) zap.Field {
	return zap.String("branch", branch)
}

func zapCode(code string) zap.Field {
	return zap.String("code", code)
}
