package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	billing "voyage-backoffice/internal/billing/domain"
	"voyage-backoffice/internal/money"
)

// TicketLine is the slice of a ticket the batcher needs: its identity
// and the net amount owed to the supplier after commission.
type TicketLine struct {
	TicketID          string
	NetSupplierAmount decimal.Decimal
}

// TicketSource supplies uninvoiced tickets with computed commissions.
type TicketSource interface {
	ListUninvoiced(ctx context.Context, supplierID string) ([]TicketLine, error)
	MarkInvoiced(ctx context.Context, ticketIDs []string, invoiceID string) error
}

// BatchService groups a supplier's uninvoiced tickets into a draft
// invoice. The invoice gross is the rounded sum of the tickets' net
// supplier amounts; this aggregation is the single rounding point of
// the whole commission pipeline.
type BatchService struct {
	suppliers SupplierRepository
	invoices  InvoiceRepository
	tickets   TicketSource
	precision int32
	clock     Clock
	logger    zerolog.Logger
}

// NewBatchService constructs the service.
func NewBatchService(
	suppliers SupplierRepository,
	invoices InvoiceRepository,
	tickets TicketSource,
	precision int32,
	clock Clock,
	logger zerolog.Logger,
) (*BatchService, error) {
	if suppliers == nil {
		return nil, errors.New("batch service: nil supplier repository")
	}
	if invoices == nil {
		return nil, errors.New("batch service: nil invoice repository")
	}
	if tickets == nil {
		return nil, errors.New("batch service: nil ticket source")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BatchService{
		suppliers: suppliers,
		invoices:  invoices,
		tickets:   tickets,
		precision: precision,
		clock:     clock,
		logger:    logger,
	}, nil
}

// BuildSupplierInvoice groups every uninvoiced computed ticket of the
// supplier into one draft invoice and marks the tickets invoiced.
func (s *BatchService) BuildSupplierInvoice(ctx context.Context, supplierID, number string) (*billing.Invoice, error) {
	supplier, err := s.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, billing.ErrSupplierNotFound
	}

	lines, err := s.tickets.ListUninvoiced(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, billing.ErrNoUninvoicedTickets
	}

	total := decimal.Zero
	ticketIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		total = total.Add(line.NetSupplierAmount)
		ticketIDs = append(ticketIDs, line.TicketID)
	}
	gross := money.RoundCurrency(total, s.precision)

	now := s.clock.Now()
	if number == "" {
		number = fmt.Sprintf("INV-%s-%s", supplierID, now.Format("20060102-150405"))
	}
	invoice, err := billing.NewInvoice(supplierID, number, gross, now)
	if err != nil {
		return nil, err
	}
	invoice.TicketIDs = ticketIDs

	if err := s.invoices.Save(ctx, invoice); err != nil {
		return nil, err
	}
	if err := s.tickets.MarkInvoiced(ctx, ticketIDs, invoice.ID); err != nil {
		return nil, err
	}

	// The new invoice raises what is owed; refresh the cached columns.
	siblings, err := s.invoices.ListBySupplier(ctx, supplierID)
	if err == nil {
		supplier.ApplyBalance(billing.ReconcileBalance(supplier, siblings).Balance)
		if saveErr := s.suppliers.Save(ctx, supplier); saveErr != nil {
			s.logger.Warn().Err(saveErr).Str("supplier_id", supplierID).Msg("balance cache refresh failed")
		}
	}

	s.logger.Info().
		Str("supplier_id", supplierID).
		Str("invoice_id", invoice.ID).
		Int("tickets", len(ticketIDs)).
		Str("gross_total", gross.String()).
		Msg("supplier invoice batched")
	return invoice, nil
}
