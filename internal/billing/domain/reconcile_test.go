package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func invoiceWith(supplierID string, gross int64, settlements ...Settlement) *Invoice {
	inv := &Invoice{
		ID:         "inv-" + supplierID,
		SupplierID: supplierID,
		GrossTotal: dec(gross),
		Status:     StatusSent,
	}
	for _, s := range settlements {
		inv.ApplySettlement(s, decimal.Zero, time.Now())
	}
	return inv
}

func TestReconcileBalanceFold(t *testing.T) {
	supplier := &Supplier{ID: "sup-1", InitialDebt: dec(5000), InitialCredit: dec(4000)}
	invoices := []*Invoice{
		invoiceWith("sup-1", 10000,
			Settlement{ID: "s1", Amount: dec(4000), Method: MethodCreditBalance, PaidFromCredit: true},
			Settlement{ID: "s2", Amount: dec(3000), Method: MethodCash},
		),
		invoiceWith("sup-1", 2000),
	}

	detail := ReconcileBalance(supplier, invoices)
	if detail.InvoiceCount != 2 {
		t.Fatalf("expected 2 invoices counted, got %d", detail.InvoiceCount)
	}
	if !detail.TotalInvoiced.Equal(dec(12000)) {
		t.Fatalf("expected invoiced 12000, got %s", detail.TotalInvoiced)
	}
	if !detail.TotalCreditSettlements.Equal(dec(4000)) || !detail.TotalManualSettlements.Equal(dec(3000)) {
		t.Fatalf("unexpected settlement split: credit=%s manual=%s", detail.TotalCreditSettlements, detail.TotalManualSettlements)
	}
	// debt = 5000 + 12000 - 3000 - 4000
	if !detail.CurrentDebt.Equal(dec(10000)) {
		t.Fatalf("expected debt 10000, got %s", detail.CurrentDebt)
	}
	// credit = 4000 - 4000
	if !detail.CurrentCredit.IsZero() {
		t.Fatalf("expected credit 0, got %s", detail.CurrentCredit)
	}
}

func TestReconcileBalanceClampsAtZero(t *testing.T) {
	supplier := &Supplier{ID: "sup-1", InitialDebt: dec(100), InitialCredit: dec(50)}
	invoices := []*Invoice{
		invoiceWith("sup-1", 1000,
			Settlement{ID: "s1", Amount: dec(5000), Method: MethodCash},
			Settlement{ID: "s2", Amount: dec(200), Method: MethodCreditBalance, PaidFromCredit: true},
		),
	}

	detail := ReconcileBalance(supplier, invoices)
	if !detail.CurrentDebt.IsZero() {
		t.Fatalf("expected overpaid debt clamped to 0, got %s", detail.CurrentDebt)
	}
	if !detail.CurrentCredit.IsZero() {
		t.Fatalf("expected over-consumed credit clamped to 0, got %s", detail.CurrentCredit)
	}
}

func TestReconcileBalanceRefundsNetOut(t *testing.T) {
	supplier := &Supplier{ID: "sup-1"}
	invoices := []*Invoice{
		invoiceWith("sup-1", 10000,
			Settlement{ID: "s1", Amount: dec(10000), Method: MethodCash},
			Settlement{ID: "s2", Amount: dec(-2000), Method: MethodCash},
		),
	}

	detail := ReconcileBalance(supplier, invoices)
	if !detail.TotalManualSettlements.Equal(dec(8000)) {
		t.Fatalf("expected refunds netted to 8000, got %s", detail.TotalManualSettlements)
	}
	if !detail.CurrentDebt.Equal(dec(2000)) {
		t.Fatalf("expected debt 2000 after refund, got %s", detail.CurrentDebt)
	}
}

func TestReconcileBalanceIgnoresOtherSuppliersAndCancelled(t *testing.T) {
	supplier := &Supplier{ID: "sup-1"}
	cancelled := invoiceWith("sup-1", 7000)
	cancelled.Status = StatusCancelled
	invoices := []*Invoice{
		invoiceWith("sup-1", 3000),
		invoiceWith("sup-2", 9000),
		cancelled,
		nil,
	}

	detail := ReconcileBalance(supplier, invoices)
	if detail.InvoiceCount != 1 || !detail.TotalInvoiced.Equal(dec(3000)) {
		t.Fatalf("expected only the live sup-1 invoice, got count=%d invoiced=%s", detail.InvoiceCount, detail.TotalInvoiced)
	}
}

func TestReconcileBalanceIdempotent(t *testing.T) {
	supplier := &Supplier{ID: "sup-1", InitialDebt: dec(500)}
	invoices := []*Invoice{
		invoiceWith("sup-1", 4000, Settlement{ID: "s1", Amount: dec(1500), Method: MethodBank}),
	}

	first := ReconcileBalance(supplier, invoices)
	second := ReconcileBalance(supplier, invoices)
	if !first.CurrentDebt.Equal(second.CurrentDebt) || !first.CurrentCredit.Equal(second.CurrentCredit) {
		t.Fatalf("expected identical folds, got %+v vs %+v", first, second)
	}
}

func TestInvoiceStatusTransitions(t *testing.T) {
	inv := invoiceWith("sup-1", 10000)
	eps := decimal.NewFromFloat(0.01)
	now := time.Now()

	inv.ApplySettlement(Settlement{ID: "s1", Amount: dec(4000), Method: MethodCash}, eps, now)
	if inv.Status != StatusPartiallyPaid {
		t.Fatalf("expected partially_paid, got %s", inv.Status)
	}

	inv.ApplySettlement(Settlement{ID: "s2", Amount: dec(6000), Method: MethodCash}, eps, now)
	if inv.Status != StatusPaid {
		t.Fatalf("expected paid, got %s", inv.Status)
	}
	if !inv.RemainingBalance().IsZero() {
		t.Fatalf("expected zero remaining, got %s", inv.RemainingBalance())
	}

	inv.ApplySettlement(Settlement{ID: "s3", Amount: dec(-6000), Method: MethodCash}, eps, now)
	if inv.Status != StatusPartiallyPaid {
		t.Fatalf("expected refund to move status back to partially_paid, got %s", inv.Status)
	}
}

func TestInvoicePaidWithinEpsilon(t *testing.T) {
	inv := invoiceWith("sup-1", 10000)
	eps := decimal.NewFromFloat(0.01)

	inv.ApplySettlement(Settlement{ID: "s1", Amount: decimal.NewFromFloat(9999.995), Method: MethodCash}, eps, time.Now())
	if inv.Status != StatusPaid {
		t.Fatalf("expected paid within epsilon, got %s", inv.Status)
	}
}
