package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentPosted is published after a save that posted or reversed a document
// has committed.
type DocumentPosted struct {
	Kind       string                     `json:"kind"`
	DocumentID string                     `json:"document_id"`
	Branch     string                     `json:"branch"`
	Transition string                     `json:"transition"`
	Deltas     map[string]decimal.Decimal `json:"deltas"`
	OccurredAt time.Time                  `json:"occurred_at"`
}
