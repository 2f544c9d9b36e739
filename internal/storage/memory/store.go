package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
	"github.com/sheikh-saqib/erp-ledger-core/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// A transaction holds the store mutex from begin to end and works on a copy
// of the state, which replaces the live state only on commit.
type MemoryLedgerStore struct {
	mu    sync.Mutex // held for the whole of WithTx and for reads
	state *state
}

type state struct {
	accounts        map[string]models.Account
	chartNodes      map[string]models.ChartNode
	bankAccounts    map[string]models.BankAccount
	actors          map[string]models.Actor
	cashTransfers   map[string]models.CashTransfer
	journalVouchers map[string]models.JournalVoucher
	cheques         map[string]models.Cheque
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		state: &state{
			accounts:        make(map[string]models.Account),
			chartNodes:      make(map[string]models.ChartNode),
			bankAccounts:    make(map[string]models.BankAccount),
			actors:          make(map[string]models.Actor),
			cashTransfers:   make(map[string]models.CashTransfer),
			journalVouchers: make(map[string]models.JournalVoucher),
			cheques:         make(map[string]models.Cheque),
		},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// clone copies every table. Stored documents own their item slices (they
// are copied on the way in and out), so a shallow copy of each map is enough.
func (s *state) clone() *state {
	return &state{
		accounts:        cloneMap(s.accounts),
		chartNodes:      cloneMap(s.chartNodes),
		bankAccounts:    cloneMap(s.bankAccounts),
		actors:          cloneMap(s.actors),
		cashTransfers:   cloneMap(s.cashTransfers),
		journalVouchers: cloneMap(s.journalVouchers),
		cheques:         cloneMap(s.cheques),
	}
}

// WithTx runs fn against a private copy of the state and keeps it only if
// fn succeeds.
func (m *MemoryLedgerStore) WithTx(ctx context.Context, fn func(tx interfaces.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memoryTx{s: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *MemoryLedgerStore) Account(ctx context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.state.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	return a, nil
}

func (m *MemoryLedgerStore) AccountByCode(ctx context.Context, branch, code string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a := m.state.accountByCode(branch, code); a != nil {
		return *a, nil
	}
	return models.Account{}, fmt.Errorf("account %s/%s: %w", branch, code, interfaces.ErrNotFound)
}

func (m *MemoryLedgerStore) Accounts(ctx context.Context, branch string) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.Account
	for _, a := range m.state.accounts {
		if a.Branch == branch {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *state) accountByCode(branch, code string) *models.Account {
	for _, a := range s.accounts {
		if a.Branch == branch && a.Code == code {
			return &a
		}
	}
	return nil
}

// memoryTx is the transaction handle. The store mutex is already held.
type memoryTx struct {
	s *state
}

// LockScope is a no-op: the store mutex already serialises transactions.
func (t *memoryTx) LockScope(ctx context.Context, scope string) error {
	return nil
}

func (t *memoryTx) AccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error) {
	var codes []string
	for _, a := range t.s.accounts {
		if a.Branch == branch && a.Code != "" && strings.HasPrefix(a.Code, prefix) {
			codes = append(codes, a.Code)
		}
	}
	return codes, nil
}

func (t *memoryTx) BankAccountCodesWithPrefix(ctx context.Context, branch, prefix string) ([]string, error) {
	var codes []string
	for _, b := range t.s.bankAccounts {
		if b.Branch == branch && b.Code != "" && strings.HasPrefix(b.Code, prefix) {
			codes = append(codes, b.Code)
		}
	}
	return codes, nil
}

func (t *memoryTx) ChartCodesInRange(ctx context.Context, branch, lo, hi string) ([]string, error) {
	var codes []string
	for _, n := range t.s.chartNodes {
		if n.Branch == branch && n.Code != "" && n.Code >= lo && n.Code <= hi {
			codes = append(codes, n.Code)
		}
	}
	return codes, nil
}

func (t *memoryTx) GetAccount(ctx context.Context, id string) (models.Account, error) {
	a, ok := t.s.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	return a, nil
}

func (t *memoryTx) FindAccountByCode(ctx context.Context, branch, code string) (*models.Account, error) {
	return t.s.accountByCode(branch, code), nil
}

func (t *memoryTx) CreateAccount(ctx context.Context, account models.Account) error {
	if _, exists := t.s.accounts[account.ID]; exists {
		return fmt.Errorf("account id %s: %w", account.ID, interfaces.ErrUniqueViolation)
	}
	if t.s.accountByCode(account.Branch, account.Code) != nil {
		return fmt.Errorf("account %s/%s: %w", account.Branch, account.Code, interfaces.ErrUniqueViolation)
	}
	t.s.accounts[account.ID] = account
	return nil
}

func (t *memoryTx) UpdateAccount(ctx context.Context, account models.Account) error {
	current, ok := t.s.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account %s: %w", account.ID, interfaces.ErrNotFound)
	}
	if other := t.s.accountByCode(account.Branch, account.Code); other != nil && other.ID != account.ID {
		return fmt.Errorf("account %s/%s: %w", account.Branch, account.Code, interfaces.ErrUniqueViolation)
	}
	current.Code = account.Code
	current.Name = account.Name
	current.Class = account.Class
	current.Active = account.Active
	current.UpdatedAt = account.UpdatedAt
	t.s.accounts[account.ID] = current
	return nil
}

func (t *memoryTx) LockAccounts(ctx context.Context, ids []string) ([]models.Account, error) {
	result := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		a, ok := t.s.accounts[id]
		if !ok {
			return nil, fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
		}
		result = append(result, a)
	}
	return result, nil
}

func (t *memoryTx) SetBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	a, ok := t.s.accounts[id]
	if !ok {
		return fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	a.Balance = balance
	t.s.accounts[id] = a
	return nil
}

func (t *memoryTx) GetChartNode(ctx context.Context, id string) (models.ChartNode, error) {
	n, ok := t.s.chartNodes[id]
	if !ok {
		return models.ChartNode{}, fmt.Errorf("chart node %s: %w", id, interfaces.ErrNotFound)
	}
	return n, nil
}

func (t *memoryTx) SaveChartNode(ctx context.Context, node models.ChartNode) error {
	if node.Code != "" {
		for _, n := range t.s.chartNodes {
			if n.ID != node.ID && n.Branch == node.Branch && n.Code == node.Code {
				return fmt.Errorf("chart node %s/%s: %w", node.Branch, node.Code, interfaces.ErrUniqueViolation)
			}
		}
	}
	if node.ParentID != "" {
		if _, ok := t.s.chartNodes[node.ParentID]; !ok {
			return fmt.Errorf("parent chart node %s: %w", node.ParentID, interfaces.ErrNotFound)
		}
	}
	if err := t.requireAccount(node.AccountID); err != nil {
		return err
	}
	t.s.chartNodes[node.ID] = node
	return nil
}

func (t *memoryTx) GetBankAccount(ctx context.Context, id string) (models.BankAccount, error) {
	b, ok := t.s.bankAccounts[id]
	if !ok {
		return models.BankAccount{}, fmt.Errorf("bank account %s: %w", id, interfaces.ErrNotFound)
	}
	return b, nil
}

func (t *memoryTx) SaveBankAccount(ctx context.Context, account models.BankAccount) error {
	if account.Code != "" {
		for _, b := range t.s.bankAccounts {
			if b.ID != account.ID && b.Branch == account.Branch && b.Code == account.Code {
				return fmt.Errorf("bank account %s/%s: %w", account.Branch, account.Code, interfaces.ErrUniqueViolation)
			}
		}
	}
	if err := t.requireAccount(account.MainAccountID); err != nil {
		return err
	}
	t.s.bankAccounts[account.ID] = account
	return nil
}

func (t *memoryTx) GetActor(ctx context.Context, id string) (models.Actor, error) {
	a, ok := t.s.actors[id]
	if !ok {
		return models.Actor{}, fmt.Errorf("actor %s: %w", id, interfaces.ErrNotFound)
	}
	return a, nil
}

func (t *memoryTx) FindActorByName(ctx context.Context, branch, name string) (*models.Actor, error) {
	for _, a := range t.s.actors {
		if a.Branch == branch && a.Name == name {
			return &a, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) SaveActor(ctx context.Context, actor models.Actor) error {
	if err := t.requireAccount(actor.AccountID); err != nil {
		return err
	}
	t.s.actors[actor.ID] = actor
	return nil
}

func (t *memoryTx) GetCashTransfer(ctx context.Context, id string) (models.CashTransfer, error) {
	ct, ok := t.s.cashTransfers[id]
	if !ok {
		return models.CashTransfer{}, fmt.Errorf("cash transfer %s: %w", id, interfaces.ErrNotFound)
	}
	ct.Items = append([]models.CashTransferItem(nil), ct.Items...)
	return ct, nil
}

func (t *memoryTx) SaveCashTransfer(ctx context.Context, ct models.CashTransfer) error {
	if _, ok := t.s.bankAccounts[ct.FromAccountID]; !ok {
		return fmt.Errorf("bank account %s: %w", ct.FromAccountID, interfaces.ErrNotFound)
	}
	for _, it := range ct.Items {
		if _, ok := t.s.bankAccounts[it.ToAccountID]; !ok {
			return fmt.Errorf("bank account %s: %w", it.ToAccountID, interfaces.ErrNotFound)
		}
	}
	ct.Items = append([]models.CashTransferItem(nil), ct.Items...)
	ct.Approval = copyApproval(ct.Approval)
	t.s.cashTransfers[ct.ID] = ct
	return nil
}

func (t *memoryTx) GetJournalVoucher(ctx context.Context, id string) (models.JournalVoucher, error) {
	jv, ok := t.s.journalVouchers[id]
	if !ok {
		return models.JournalVoucher{}, fmt.Errorf("journal voucher %s: %w", id, interfaces.ErrNotFound)
	}
	jv.Items = append([]models.JournalVoucherItem(nil), jv.Items...)
	return jv, nil
}

func (t *memoryTx) SaveJournalVoucher(ctx context.Context, jv models.JournalVoucher) error {
	for _, it := range jv.Items {
		if err := t.requireAccount(it.AccountID); err != nil {
			return err
		}
	}
	jv.Items = append([]models.JournalVoucherItem(nil), jv.Items...)
	jv.Approval = copyApproval(jv.Approval)
	t.s.journalVouchers[jv.ID] = jv
	return nil
}

func (t *memoryTx) GetCheque(ctx context.Context, id string) (models.Cheque, error) {
	c, ok := t.s.cheques[id]
	if !ok {
		return models.Cheque{}, fmt.Errorf("cheque %s: %w", id, interfaces.ErrNotFound)
	}
	return c, nil
}

func (t *memoryTx) SaveCheque(ctx context.Context, c models.Cheque) error {
	if c.BankAccountID != "" {
		if _, ok := t.s.bankAccounts[c.BankAccountID]; !ok {
			return fmt.Errorf("bank account %s: %w", c.BankAccountID, interfaces.ErrNotFound)
		}
	}
	if c.ChartNodeID != "" {
		if _, ok := t.s.chartNodes[c.ChartNodeID]; !ok {
			return fmt.Errorf("chart node %s: %w", c.ChartNodeID, interfaces.ErrNotFound)
		}
	}
	if c.ActorID != "" {
		if _, ok := t.s.actors[c.ActorID]; !ok {
			return fmt.Errorf("actor %s: %w", c.ActorID, interfaces.ErrNotFound)
		}
	}
	c.Approval = copyApproval(c.Approval)
	c.ChequeDate = copyTime(c.ChequeDate)
	c.ReceivedDate = copyTime(c.ReceivedDate)
	t.s.cheques[c.ID] = c
	return nil
}

// requireAccount mirrors the foreign keys of the SQL schema.
func (t *memoryTx) requireAccount(id string) error {
	if id == "" {
		return nil
	}
	if _, ok := t.s.accounts[id]; !ok {
		return fmt.Errorf("account %s: %w", id, interfaces.ErrNotFound)
	}
	return nil
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyApproval(a models.Approval) models.Approval {
	a.ApprovedAt = copyTime(a.ApprovedAt)
	a.VoidedAt = copyTime(a.VoidedAt)
	return a
}

// Compile-time check: MemoryLedgerStore implements LedgerStore.
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
