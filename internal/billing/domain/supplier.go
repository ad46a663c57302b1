package billing

import "github.com/shopspring/decimal"

// Supplier carries the initial debt/credit accumulators and the cached
// current balances. Debt and credit are independent non-negative
// accumulators, never netted against each other. CurrentDebt and
// CurrentCredit are a cache refreshed from the reconciliation fold;
// nothing hand-updates them.
type Supplier struct {
	ID   string
	Name string

	InitialDebt   decimal.Decimal
	InitialCredit decimal.Decimal

	CurrentDebt   decimal.Decimal
	CurrentCredit decimal.Decimal

	Version int
}

// ApplyBalance refreshes the cached balances from a reconciliation.
func (s *Supplier) ApplyBalance(b Balance) {
	s.CurrentDebt = b.CurrentDebt
	s.CurrentCredit = b.CurrentCredit
}

// Clone returns a detached copy.
func (s *Supplier) Clone() *Supplier {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}
