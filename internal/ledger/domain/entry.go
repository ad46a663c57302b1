package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction of a cash-register operation.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == DirectionIn {
		return DirectionOut
	}
	return DirectionIn
}

// Status of an entry. Cancelled entries stay in the log for audit but
// are excluded from active balance sums.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

// Well-known entry categories.
const (
	CategorySupplierPayment = "supplier_payment"
	CategorySupplierRefund  = "supplier_refund"
	CategoryClientPayment   = "client_payment"
	CategoryExpense         = "expense"
	CategoryAdjustment      = "adjustment"
)

// Entry is one append-only cash-register operation. Entries are never
// mutated except for the status flip on cancellation; a cancellation is
// recorded as a new opposite-direction entry.
type Entry struct {
	ID             string
	Direction      Direction
	Amount         decimal.Decimal
	Category       string
	InvoiceID      string
	SupplierID     string
	ClientID       string
	Note           string
	Date           time.Time
	Status         Status
	CancellationOf string
}

// NewEntry builds a validated active entry.
func NewEntry(direction Direction, amount decimal.Decimal, category string, date time.Time) (*Entry, error) {
	if direction != DirectionIn && direction != DirectionOut {
		return nil, ErrUnknownDirection
	}
	if amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if category == "" {
		return nil, ErrEmptyCategory
	}
	return &Entry{
		ID:        "op-" + uuid.NewString(),
		Direction: direction,
		Amount:    amount,
		Category:  category,
		Date:      date,
		Status:    StatusActive,
	}, nil
}

// Validate rejects malformed entries.
func (e *Entry) Validate() error {
	if e == nil {
		return ErrNilEntry
	}
	if e.Direction != DirectionIn && e.Direction != DirectionOut {
		return ErrUnknownDirection
	}
	if e.Amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if e.Category == "" {
		return ErrEmptyCategory
	}
	return nil
}

// CancellationEntry builds the opposite-direction counterpart recorded
// when e is cancelled. Category is copied, CancellationOf links back.
func (e *Entry) CancellationEntry(date time.Time) *Entry {
	return &Entry{
		ID:             "op-" + uuid.NewString(),
		Direction:      e.Direction.Opposite(),
		Amount:         e.Amount,
		Category:       e.Category,
		InvoiceID:      e.InvoiceID,
		SupplierID:     e.SupplierID,
		ClientID:       e.ClientID,
		Note:           "cancellation of " + e.ID,
		Date:           date,
		Status:         StatusActive,
		CancellationOf: e.ID,
	}
}

// Counted reports whether the entry participates in active balance
// sums: active and not a cancellation counterpart. A cancelled entry
// and its counterpart therefore contribute nothing, which keeps the
// fold identical to a history where neither was ever written.
func (e *Entry) Counted() bool {
	return e.Status == StatusActive && e.CancellationOf == ""
}

// Signed returns the entry amount signed by direction (in positive).
func (e *Entry) Signed() decimal.Decimal {
	if e.Direction == DirectionIn {
		return e.Amount
	}
	return e.Amount.Neg()
}

// Balance folds the counted entries of the log.
func Balance(entries []*Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.Counted() {
			total = total.Add(e.Signed())
		}
	}
	return total
}

// CategoryTotals folds counted entries into signed per-category totals.
func CategoryTotals(entries []*Entry) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if e.Counted() {
			totals[e.Category] = totals[e.Category].Add(e.Signed())
		}
	}
	return totals
}

// Clone returns a detached copy.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}
