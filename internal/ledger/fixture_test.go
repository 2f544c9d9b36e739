package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/memory"
	"github.com/sheikh-saqib/erp-ledger-core/internal/storage/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type publishedEvent struct {
	topic string
	key   string
	event any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *fakePublisher) published() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

type fixture struct {
	ctx    context.Context
	ledger *Ledger
	store  interfaces.LedgerStore
	pub    *fakePublisher
	logs   *observer.ObservedLogs
}

// eachStore runs fn once against the memory store and once against an
// in-memory SQLite database.
func eachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	t.Helper()
	backends := []struct {
		name string
		open func(t *testing.T) interfaces.LedgerStore
	}{
		{"memory", func(t *testing.T) interfaces.LedgerStore { return memory.NewMemoryLedgerStore() }},
		{"sqlite", func(t *testing.T) interfaces.LedgerStore {
			store, err := sqlite.Open(context.Background(), ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			return store
		}},
	}
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			fn(t, newFixture(t, b.open(t)))
		})
	}
}

func newFixture(t *testing.T, store interfaces.LedgerStore) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	pub := &fakePublisher{}
	l := NewLedger(store,
		WithLogger(zap.New(core)),
		WithPublisher(pub, ""),
		WithClock(func() time.Time { return testNow }),
	)
	return &fixture{
		ctx:    context.Background(),
		ledger: l,
		store:  store,
		pub:    pub,
		logs:   logs,
	}
}

func (f *fixture) bank(t *testing.T, branch string, typ models.BankType, name string) models.BankAccount {
	t.Helper()
	b := models.BankAccount{Branch: branch, Type: typ, DisplayName: name, Currency: "NPR", Active: true}
	require.NoError(t, f.ledger.SaveBankAccount(f.ctx, &b))
	return b
}

func (f *fixture) actor(t *testing.T, branch, name string) models.Actor {
	t.Helper()
	a := models.Actor{Branch: branch, Name: name, Active: true}
	require.NoError(t, f.ledger.SaveActor(f.ctx, &a))
	return a
}

func (f *fixture) node(t *testing.T, n models.ChartNode) models.ChartNode {
	t.Helper()
	n.Active = true
	require.NoError(t, f.ledger.SaveChartNode(f.ctx, &n))
	return n
}

func (f *fixture) account(t *testing.T, id string) models.Account {
	t.Helper()
	a, err := f.ledger.Account(f.ctx, id)
	require.NoError(t, err)
	return a
}

func (f *fixture) assertBalance(t *testing.T, accountID, want string) {
	t.Helper()
	got := f.account(t, accountID).Balance
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "balance of %s: got %s want %s", accountID, got, want)
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
