package commission

import (
	"context"
	"errors"

	billingapp "voyage-backoffice/internal/billing/application"
	commission "voyage-backoffice/internal/commission/domain"
)

// TicketRepository is the slice of the commission ticket store the
// adapter needs.
type TicketRepository interface {
	FindByID(ctx context.Context, id string) (*commission.Ticket, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*commission.Ticket, error)
	Save(ctx context.Context, ticket *commission.Ticket) error
}

// TicketSourceAdapter exposes commission tickets to the invoice
// batcher. Only tickets with a computed commission tuple and no invoice
// link are offered.
type TicketSourceAdapter struct {
	tickets TicketRepository
}

// NewTicketSourceAdapter constructs the adapter.
func NewTicketSourceAdapter(tickets TicketRepository) (*TicketSourceAdapter, error) {
	if tickets == nil {
		return nil, errors.New("ticket source adapter: nil ticket repository")
	}
	return &TicketSourceAdapter{tickets: tickets}, nil
}

// ListUninvoiced returns the supplier's computed, not yet invoiced
// tickets as batch lines.
func (a *TicketSourceAdapter) ListUninvoiced(ctx context.Context, supplierID string) ([]billingapp.TicketLine, error) {
	tickets, err := a.tickets.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	var lines []billingapp.TicketLine
	for _, t := range tickets {
		if t.Invoiced() || !t.Computed() {
			continue
		}
		lines = append(lines, billingapp.TicketLine{
			TicketID:          t.ID,
			NetSupplierAmount: t.Result.NetSupplierAmount,
		})
	}
	return lines, nil
}

// MarkInvoiced links the tickets to the invoice.
func (a *TicketSourceAdapter) MarkInvoiced(ctx context.Context, ticketIDs []string, invoiceID string) error {
	for _, id := range ticketIDs {
		ticket, err := a.tickets.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if ticket == nil {
			return commission.ErrTicketNotFound
		}
		ticket.InvoiceID = invoiceID
		if err := a.tickets.Save(ctx, ticket); err != nil {
			return err
		}
	}
	return nil
}
