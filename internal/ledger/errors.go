package ledger

import (
	"errors"
	"fmt"

	interfaces "github.com/sheikh-saqib/erp-ledger-core/internal/interfaces"
)

var (
	ErrUniqueViolation      = interfaces.ErrUniqueViolation
	ErrNotFound             = interfaces.ErrNotFound
	ErrCrossBranchLink      = errors.New("linked account belongs to another branch")
	ErrRangeExhausted       = errors.New("no code left in range")
	ErrUnlinkedAccount      = errors.New("no mirrored ledger account")
	ErrMissingCounterparty  = errors.New("cheque needs exactly one counterparty")
	ErrEmptyDocument        = errors.New("document has no items")
	ErrPostedDocumentLocked = errors.New("posted document lines cannot be changed")
	ErrInvalidDocument      = errors.New("invalid document")
)

// ValidationError is a save failure the caller has to fix. It unwraps to one
// of the sentinel errors above.
type ValidationError struct {
	Err    error
	Entity string
	ID     string
	Reason string
}

func (e *ValidationError) Error() string {
	subject := e.Entity
	if e.ID != "" {
		subject += " " + e.ID
	}
	return fmt.Sprintf("%s: %v: %s", subject, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(err error, entity, id, format string, args ...any) error {
	return &ValidationError{Err: err, Entity: entity, ID: id, Reason: fmt.Sprintf(format, args...)}
}
