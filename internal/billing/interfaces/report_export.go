package interfaces

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	billingapp "voyage-backoffice/internal/billing/application"
)

// BuildBalanceReportXLSX renders the batch reconciliation as a
// spreadsheet: one row per supplier with the fold's intermediate sums
// and the reconciled position.
func BuildBalanceReportXLSX(balances []billingapp.SupplierBalance, currency string) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "balances"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Supplier", "Name",
		"Initial Debt", "Initial Credit",
		"Invoiced", "Manual Settlements", "Credit Settlements",
		"Current Debt", "Current Credit",
		"Invoices",
	}
	for i, name := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellValue(sheet, cell, name)
	}
	_ = f.SetCellValue(sheet, "L1", fmt.Sprintf("Currency: %s", currency))

	for row, b := range balances {
		values := []any{
			b.Supplier.ID, b.Supplier.Name,
			b.Supplier.InitialDebt.String(), b.Supplier.InitialCredit.String(),
			b.Detail.TotalInvoiced.String(),
			b.Detail.TotalManualSettlements.String(),
			b.Detail.TotalCreditSettlements.String(),
			b.Detail.CurrentDebt.String(), b.Detail.CurrentCredit.String(),
			b.Detail.InvoiceCount,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, err
			}
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
