package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// Commission reasons recorded on the cached result.
const (
	ReasonRuleApplied     = "rule applied"
	ReasonNoRule          = "no matching rule"
	ReasonManuallyCleared = "manually cleared"
)

// Result is the derived commission tuple cached on a ticket. It is
// always overwritten as a whole, never field by field, so a stale
// commission can not be paired with a fresh net amount.
type Result struct {
	Commission        decimal.Decimal
	NetSupplierAmount decimal.Decimal
	AppliedRuleID     string
	Reason            string
	ComputedAt        time.Time
}

// ManuallyCleared reports whether the result is the terminal
// user-cleared state that automatic recompute must not overwrite.
func (r Result) ManuallyCleared() bool {
	return r.Reason == ReasonManuallyCleared
}

// Ticket holds the immutable core facts of a ticket transaction plus
// the derived commission cache.
type Ticket struct {
	ID         string
	SupplierID string

	Attrs    TicketAttributes
	GrossHT  decimal.Decimal
	GrossTTC decimal.Decimal
	Taxes    decimal.Decimal

	Result    *Result
	InvoiceID string
	Version   int
}

// SetResult overwrites the cached commission tuple atomically.
func (t *Ticket) SetResult(res Result) {
	clone := res
	t.Result = &clone
}

// Computed reports whether the ticket carries a commission result.
func (t *Ticket) Computed() bool { return t.Result != nil }

// Invoiced reports whether the ticket is already grouped into an invoice.
func (t *Ticket) Invoiced() bool { return t.InvoiceID != "" }

// Clone returns a detached copy.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Result != nil {
		res := *t.Result
		clone.Result = &res
	}
	return &clone
}
