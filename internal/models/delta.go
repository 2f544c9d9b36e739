package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Deltas maps Account ids to signed balance changes.
type Deltas map[string]decimal.Decimal

// Add accumulates amount onto the delta for id.
func (d Deltas) Add(id string, amount decimal.Decimal) {
	d[id] = d[id].Add(amount)
}

// Negate returns the exact reversal of d.
func (d Deltas) Negate() Deltas {
	out := make(Deltas, len(d))
	for id, amount := range d {
		out[id] = amount.Neg()
	}
	return out
}

// IDs returns the account ids in ascending order, the order rows are locked in.
func (d Deltas) IDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
