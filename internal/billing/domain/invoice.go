package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"voyage-backoffice/internal/money"
)

// InvoiceStatus is the invoice lifecycle state.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusSent          InvoiceStatus = "sent"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
	StatusOverdue       InvoiceStatus = "overdue"
	StatusCancelled     InvoiceStatus = "cancelled"
)

// Settlement methods for the cash portion.
const (
	MethodCash          = "cash"
	MethodBank          = "bank"
	MethodCreditBalance = "credit_balance"
)

// Settlement is one payment application against an invoice, tagged by
// funding source. The PaidFromCredit flag is per line; a mixed payment
// is recorded as two lines, never one. Refunds carry a negative amount.
type Settlement struct {
	ID             string
	Amount         decimal.Decimal
	Date           time.Time
	Method         string
	PaidFromCredit bool
}

// Refund reports whether the settlement is a refund line.
func (s Settlement) Refund() bool { return s.Amount.Sign() < 0 }

// Invoice groups a supplier's ticket batch and tracks its settlement.
// AmountPaid is a cache of the signed settlement sum.
type Invoice struct {
	ID         string
	SupplierID string
	Number     string

	GrossTotal decimal.Decimal
	AmountPaid decimal.Decimal

	Status      InvoiceStatus
	Settlements []Settlement

	TicketIDs []string
	IssuedAt  time.Time
	UpdatedAt time.Time
	Version   int
}

// NewInvoice builds a draft invoice.
func NewInvoice(supplierID, number string, grossTotal decimal.Decimal, issuedAt time.Time) (*Invoice, error) {
	if grossTotal.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Invoice{
		ID:         "inv-" + uuid.NewString(),
		SupplierID: supplierID,
		Number:     number,
		GrossTotal: grossTotal,
		AmountPaid: decimal.Zero,
		Status:     StatusDraft,
		IssuedAt:   issuedAt,
		UpdatedAt:  issuedAt,
	}, nil
}

// RemainingBalance returns grossTotal minus amountPaid.
func (i *Invoice) RemainingBalance() decimal.Decimal {
	return i.GrossTotal.Sub(i.AmountPaid)
}

// Settleable reports whether payments may be applied.
func (i *Invoice) Settleable() bool {
	switch i.Status {
	case StatusDraft, StatusSent, StatusPartiallyPaid, StatusOverdue:
		return true
	default:
		return false
	}
}

// ApplySettlement appends a payment line and refreshes AmountPaid and
// the status cache. The caller has already authorized the amount.
func (i *Invoice) ApplySettlement(s Settlement, eps decimal.Decimal, now time.Time) {
	i.Settlements = append(i.Settlements, s)
	i.AmountPaid = i.AmountPaid.Add(s.Amount)
	i.UpdatedAt = now
	i.refreshStatus(eps)
}

// refreshStatus derives the status from the paid amount. Forward-only
// under positive settlements; refunds move it back through the same
// derivation.
func (i *Invoice) refreshStatus(eps decimal.Decimal) {
	if i.Status == StatusCancelled {
		return
	}
	switch {
	case money.CoversWithEpsilon(i.AmountPaid, i.GrossTotal, eps):
		i.Status = StatusPaid
	case i.AmountPaid.Sign() > 0:
		i.Status = StatusPartiallyPaid
	default:
		if i.Status == StatusPaid || i.Status == StatusPartiallyPaid {
			i.Status = StatusSent
		}
	}
}

// Clone returns a detached copy with its own settlement slice.
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Settlements = append([]Settlement(nil), i.Settlements...)
	clone.TicketIDs = append([]string(nil), i.TicketIDs...)
	return &clone
}
