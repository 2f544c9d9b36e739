package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PostingState is derived from a document's approval fields on every save.
// It is never persisted.
type PostingState int

const (
	StateDraft PostingState = iota
	StatePosted
	StateReversed
)

func (s PostingState) String() string {
	switch s {
	case StatePosted:
		return "posted"
	case StateReversed:
		return "reversed"
	default:
		return "draft"
	}
}

// Transition is what a save did to the ledger.
type Transition string

const (
	TransitionNone    Transition = "none"
	TransitionPost    Transition = "post"
	TransitionReverse Transition = "reverse"
)

// TransitionBetween returns the balance action implied by moving from one
// posted flag to another.
func TransitionBetween(wasPosted, isPosted bool) Transition {
	switch {
	case !wasPosted && isPosted:
		return TransitionPost
	case wasPosted && !isPosted:
		return TransitionReverse
	default:
		return TransitionNone
	}
}

// Approval carries the approval/void lifecycle shared by every document.
type Approval struct {
	Approved   bool
	ApprovedBy string
	ApprovedAt *time.Time
	VoidedAt   *time.Time // non-nil means voided
}

// IsPosted reports approved and not voided.
func (a Approval) IsPosted() bool {
	return a.Approved && a.VoidedAt == nil
}

// stateOf reads the state off the current fields. A voided document that
// still carries what posted it (approval, and clearance for cheques) was
// posted and reads Reversed. One voided before it could post reads Draft, as
// does a posted document that was un-approved; the save's Transition is what
// reports that reversal.
func stateOf(posted, postable bool, a Approval) PostingState {
	switch {
	case posted:
		return StatePosted
	case postable && a.VoidedAt != nil:
		return StateReversed
	default:
		return StateDraft
	}
}

// CashTransfer moves money from one bank/cash account to one or more others.
type CashTransfer struct {
	ID            string
	Branch        string
	TransferNo    string
	TransferDate  time.Time
	FromAccountID string // BankAccount id
	ReferenceNo   string
	Total         decimal.Decimal
	Note          string
	Approval
	Items     []CashTransferItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CashTransferItem is one destination of a cash transfer.
type CashTransferItem struct {
	ID          string
	ToAccountID string // BankAccount id
	Amount      decimal.Decimal
	Note        string
}

// State returns the derived posting state.
func (c CashTransfer) State() PostingState {
	return stateOf(c.IsPosted(), c.Approved, c.Approval)
}

// JournalVoucher is a free-form set of debit/credit lines against ledger accounts.
type JournalVoucher struct {
	ID          string
	Branch      string
	VoucherNo   string
	VoucherDate time.Time
	Narration   string
	Total       decimal.Decimal
	Note        string
	Approval
	Items     []JournalVoucherItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalVoucherItem is one line of a journal voucher.
type JournalVoucherItem struct {
	ID        string
	AccountID string // Account id
	DrAmount  decimal.Decimal
	CrAmount  decimal.Decimal
	LineNote  string
}

// State returns the derived posting state.
func (j JournalVoucher) State() PostingState {
	return stateOf(j.IsPosted(), j.Approved, j.Approval)
}

// ChequeStatus is the lifecycle status of a cheque.
type ChequeStatus string

const (
	ChequeIssued    ChequeStatus = "issued"
	ChequeReceived  ChequeStatus = "received"
	ChequeCleared   ChequeStatus = "cleared"
	ChequeBounced   ChequeStatus = "bounced"
	ChequeCancelled ChequeStatus = "cancelled"
)

// Normalize lowercases and trims a status as entered.
func (s ChequeStatus) Normalize() ChequeStatus {
	return ChequeStatus(strings.ToLower(strings.TrimSpace(string(s))))
}

// Cheque is a cheque-register entry. Exactly one of ChartNodeID and ActorID
// names the other side of the posting.
type Cheque struct {
	ID            string
	Branch        string
	ChequeNo      string
	BankAccountID string
	ChartNodeID   string
	ActorID       string
	ChequeDate    *time.Time
	ReceivedDate  *time.Time
	Amount        decimal.Decimal
	Status        ChequeStatus
	Direction     ChequeStatus // last issued/received status seen, kept by the ledger
	Memo          string
	Total         decimal.Decimal
	Note          string
	Approval
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPosted additionally requires the cheque to be cleared.
func (c Cheque) IsPosted() bool {
	return c.Approval.IsPosted() && c.Status.Normalize() == ChequeCleared
}

// State returns the derived posting state.
func (c Cheque) State() PostingState {
	return stateOf(c.IsPosted(), c.Approved && c.Status.Normalize() == ChequeCleared, c.Approval)
}

// CounterpartyKind tags the entity on the other side of a cheque.
type CounterpartyKind int

const (
	CounterpartyChart CounterpartyKind = iota + 1
	CounterpartyActor
)

func (k CounterpartyKind) String() string {
	switch k {
	case CounterpartyChart:
		return "chart node"
	case CounterpartyActor:
		return "actor"
	default:
		return "unknown"
	}
}

// Counterparty is a chart node or an actor, by id.
type Counterparty struct {
	Kind CounterpartyKind
	ID   string
}
