package models

import (
	"strings"
	"time"
)

// Category is the chart-of-accounts category of a node.
type Category string

const (
	CategoryAsset     Category = "asset"
	CategoryLiability Category = "liability"
	CategoryEquity    Category = "equity"
	CategoryIncome    Category = "income"
	CategoryExpense   Category = "expense"
)

// ChartNode is one node of a branch's chart-of-accounts tree.
// Nodes reference their parent by id; the tree is never walked past the
// immediate parent.
type ChartNode struct {
	ID          string
	Branch      string
	Code        string // numeric, assigned from the category range when blank
	Name        string
	Description string
	Category    Category
	ParentID    string // empty for roots
	IsGroup     bool
	IsSystem    bool
	Active      bool
	AccountID   string // mirrored Account, class coa
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BankType distinguishes bank accounts from cash boxes.
type BankType string

const (
	BankTypeBank BankType = "bank"
	BankTypeCash BankType = "cash"
)

// Normalize lowercases and trims a bank type as entered.
func (t BankType) Normalize() BankType {
	return BankType(strings.ToLower(strings.TrimSpace(string(t))))
}

// BankAccount is a bank or cash account owned by a branch.
type BankAccount struct {
	ID            string
	Branch        string
	Type          BankType
	BankName      string
	DisplayName   string
	Code          string // BA00001 / BC00001, assigned when blank
	AccountName   string
	AccountNumber string
	Currency      string
	MainAccountID string // mirrored Account, class bank
	Description   string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Actor is a trading partner (customer, supplier, agent) with its own ledger account.
type Actor struct {
	ID        string
	Branch    string
	Name      string
	Active    bool
	AccountID string // mirrored Account, class actor, code AT00001...
	CreatedAt time.Time
	UpdatedAt time.Time
}
