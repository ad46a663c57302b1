package application

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	billing "voyage-backoffice/internal/billing/domain"
	"voyage-backoffice/internal/billing/infrastructure/memory"
)

type stubTicketSource struct {
	lines    []TicketLine
	invoiced map[string]string
}

func (s *stubTicketSource) ListUninvoiced(_ context.Context, _ string) ([]TicketLine, error) {
	return s.lines, nil
}

func (s *stubTicketSource) MarkInvoiced(_ context.Context, ticketIDs []string, invoiceID string) error {
	if s.invoiced == nil {
		s.invoiced = make(map[string]string)
	}
	for _, id := range ticketIDs {
		s.invoiced[id] = invoiceID
	}
	s.lines = nil
	return nil
}

func newBatchFixture(t *testing.T, lines []TicketLine) (*BatchService, *memory.Store, *stubTicketSource) {
	t.Helper()
	store := memory.NewStore(nil)
	supplier := &billing.Supplier{ID: "sup-1", Name: "Air Supplier"}
	if err := store.Save(context.Background(), supplier); err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	source := &stubTicketSource{lines: lines}
	svc, err := NewBatchService(store, store.Invoices(), source, 2, SystemClock{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new batch service: %v", err)
	}
	return svc, store, source
}

func TestBuildSupplierInvoiceRoundsAggregate(t *testing.T) {
	mustDec := func(v string) decimal.Decimal {
		d, err := decimal.NewFromString(v)
		if err != nil {
			t.Fatalf("parse %s: %v", v, err)
		}
		return d
	}
	svc, store, source := newBatchFixture(t, []TicketLine{
		{TicketID: "tkt-1", NetSupplierAmount: mustDec("34250.0025")},
		{TicketID: "tkt-2", NetSupplierAmount: mustDec("12000.0050")},
	})
	ctx := context.Background()

	invoice, err := svc.BuildSupplierInvoice(ctx, "sup-1", "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Rounding happens once, on the aggregate: 46250.0075 -> 46250.01.
	if !invoice.GrossTotal.Equal(mustDec("46250.01")) {
		t.Fatalf("expected gross 46250.01, got %s", invoice.GrossTotal)
	}
	if invoice.Status != billing.StatusDraft {
		t.Fatalf("expected draft, got %s", invoice.Status)
	}
	if len(invoice.TicketIDs) != 2 {
		t.Fatalf("expected 2 ticket links, got %d", len(invoice.TicketIDs))
	}
	if invoice.Number == "" {
		t.Fatal("expected a generated invoice number")
	}

	if source.invoiced["tkt-1"] != invoice.ID || source.invoiced["tkt-2"] != invoice.ID {
		t.Fatalf("expected tickets marked invoiced, got %v", source.invoiced)
	}

	supplier, err := store.FindByID(ctx, "sup-1")
	if err != nil {
		t.Fatalf("find supplier: %v", err)
	}
	if !supplier.CurrentDebt.Equal(invoice.GrossTotal) {
		t.Fatalf("expected cached debt %s, got %s", invoice.GrossTotal, supplier.CurrentDebt)
	}
}

func TestBuildSupplierInvoiceNoTickets(t *testing.T) {
	svc, _, _ := newBatchFixture(t, nil)
	_, err := svc.BuildSupplierInvoice(context.Background(), "sup-1", "")
	if !errors.Is(err, billing.ErrNoUninvoicedTickets) {
		t.Fatalf("expected ErrNoUninvoicedTickets, got %v", err)
	}
}

func TestBuildSupplierInvoiceUnknownSupplier(t *testing.T) {
	svc, _, _ := newBatchFixture(t, []TicketLine{{TicketID: "tkt-1", NetSupplierAmount: decimal.NewFromInt(100)}})
	_, err := svc.BuildSupplierInvoice(context.Background(), "sup-missing", "")
	if !errors.Is(err, billing.ErrSupplierNotFound) {
		t.Fatalf("expected ErrSupplierNotFound, got %v", err)
	}
}

func TestBuildSupplierInvoiceKeepsExplicitNumber(t *testing.T) {
	svc, _, _ := newBatchFixture(t, []TicketLine{{TicketID: "tkt-1", NetSupplierAmount: decimal.NewFromInt(5000)}})
	invoice, err := svc.BuildSupplierInvoice(context.Background(), "sup-1", "INV-2026-042")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if invoice.Number != "INV-2026-042" {
		t.Fatalf("expected explicit number kept, got %s", invoice.Number)
	}
}
