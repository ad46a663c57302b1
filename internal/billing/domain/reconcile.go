package billing

import (
	"github.com/shopspring/decimal"

	"voyage-backoffice/internal/money"
)

// Balance is the reconciled current position of a supplier.
type Balance struct {
	CurrentDebt   decimal.Decimal
	CurrentCredit decimal.Decimal
}

// BalanceDetail carries the fold's intermediate sums for reporting.
type BalanceDetail struct {
	Balance
	TotalInvoiced          decimal.Decimal
	TotalManualSettlements decimal.Decimal
	TotalCreditSettlements decimal.Decimal
	InvoiceCount           int
}

// ReconcileBalance replays a supplier's initial position plus every
// linked invoice and settlement into the current debt and credit. Pure
// fold over immutable records: always recomputable, safe to re-run
// after backfills, and the only source of truth for current balances.
//
// Every invoice counts toward debt regardless of payment status; an
// unpaid invoice still increases what is owed. Settlement amounts are
// summed signed so refund lines net out against the payments they
// reverse. Both accumulators clamp at zero.
func ReconcileBalance(supplier *Supplier, invoices []*Invoice) BalanceDetail {
	detail := BalanceDetail{
		TotalInvoiced:          decimal.Zero,
		TotalManualSettlements: decimal.Zero,
		TotalCreditSettlements: decimal.Zero,
	}
	if supplier == nil {
		return detail
	}

	for _, inv := range invoices {
		if inv == nil || inv.SupplierID != supplier.ID || inv.Status == StatusCancelled {
			continue
		}
		detail.InvoiceCount++
		detail.TotalInvoiced = detail.TotalInvoiced.Add(inv.GrossTotal)
		for _, s := range inv.Settlements {
			if s.PaidFromCredit {
				detail.TotalCreditSettlements = detail.TotalCreditSettlements.Add(s.Amount)
			} else {
				detail.TotalManualSettlements = detail.TotalManualSettlements.Add(s.Amount)
			}
		}
	}

	detail.CurrentCredit = money.ClampZero(supplier.InitialCredit.Sub(detail.TotalCreditSettlements))
	detail.CurrentDebt = money.ClampZero(
		supplier.InitialDebt.
			Add(detail.TotalInvoiced).
			Sub(detail.TotalManualSettlements).
			Sub(detail.TotalCreditSettlements),
	)
	return detail
}
