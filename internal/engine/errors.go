package engine

import (
	"errors"
	"fmt"
)

// ErrUnbalancedEntry aborts a posting whose debits and credits diverge.
// A balance failure means a bug in line construction, never bad input, so
// the transaction rolls back and nothing partial is left behind.
var ErrUnbalancedEntry = errors.New("journal entry debits do not equal credits")

// Invariant rule names used in InvariantError.
const (
	RuleSingleDisposition   = "single_disposition_per_cow"
	RuleDispositionSequence = "disposition_sequence"
)

// InvariantError reports input that would violate a ledger rule. These map
// to 409s at the API layer; everything else is a 400 or 500.
type InvariantError struct {
	Rule   string
	Detail string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}
