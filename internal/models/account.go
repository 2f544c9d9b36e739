package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Class names the kind of source entity an Account mirrors.
type Class string

const (
	ClassCOA   Class = "coa"
	ClassBank  Class = "bank"
	ClassActor Class = "actor"
)

// Account is a ledger registry row holding a running balance.
// Balance starts at zero and is only changed by posting.
type Account struct {
	ID        string
	Branch    string
	Code      string // unique per branch
	Name      string
	Class     Class
	Active    bool
	Balance   decimal.Decimal // balance += debit - credit
	CreatedAt time.Time
	UpdatedAt time.Time
}
