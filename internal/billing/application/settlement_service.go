package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	billing "voyage-backoffice/internal/billing/domain"
	ledger "voyage-backoffice/internal/ledger/domain"
	"voyage-backoffice/internal/money"
	"voyage-backoffice/internal/observability/metrics"
)

// SettleMode selects the funding source of a settlement.
type SettleMode string

const (
	SettleCreditOnly SettleMode = "credit_only"
	SettleCashOnly   SettleMode = "cash_only"
	SettleMixed      SettleMode = "mixed"
)

// SettlementCommitter persists the outcome of a settlement atomically:
// invoice with its new settlement lines, supplier with refreshed cached
// balances, and the optional cash ledger entry, all in one transaction
// with optimistic version checks.
type SettlementCommitter interface {
	Commit(ctx context.Context, invoice *billing.Invoice, supplier *billing.Supplier, entry *ledger.Entry) error
}

// SettleResult is the outcome of a settlement.
type SettleResult struct {
	Invoice        *billing.Invoice
	Supplier       *billing.Supplier
	LedgerEntry    *ledger.Entry
	PaidFromCredit decimal.Decimal
	PaidFromCash   decimal.Decimal
}

// SettlementService orchestrates invoice settlements and refunds.
// Every call re-fetches fresh state, computes the split, and commits
// all-or-nothing; rejections leave no partial mutation.
type SettlementService struct {
	suppliers SupplierRepository
	invoices  InvoiceRepository
	committer SettlementCommitter
	clock     Clock
	logger    zerolog.Logger
	epsilon   decimal.Decimal
}

// NewSettlementService constructs the service.
func NewSettlementService(
	suppliers SupplierRepository,
	invoices InvoiceRepository,
	committer SettlementCommitter,
	clock Clock,
	logger zerolog.Logger,
	epsilon decimal.Decimal,
) (*SettlementService, error) {
	if suppliers == nil {
		return nil, errors.New("settlement service: nil supplier repository")
	}
	if invoices == nil {
		return nil, errors.New("settlement service: nil invoice repository")
	}
	if committer == nil {
		return nil, errors.New("settlement service: nil committer")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if epsilon.Sign() < 0 {
		epsilon = decimal.Zero
	}
	return &SettlementService{
		suppliers: suppliers,
		invoices:  invoices,
		committer: committer,
		clock:     clock,
		logger:    logger,
		epsilon:   epsilon,
	}, nil
}

// Settle applies a payment of amountToPay to the invoice under the
// given mode. Credit is exhausted first in mixed mode; the cash portion
// is recorded in the cash ledger. Credit and cash portions become
// separate settlement lines.
func (s *SettlementService) Settle(ctx context.Context, invoiceID string, amountToPay decimal.Decimal, mode SettleMode, cashMethod string) (SettleResult, error) {
	started := time.Now()
	result, err := s.settle(ctx, invoiceID, amountToPay, mode, cashMethod)
	metrics.ObserveSettlement(string(mode), resultLabel(err), time.Since(started).Seconds())
	if err != nil {
		s.logger.Warn().Err(err).
			Str("invoice_id", invoiceID).
			Str("mode", string(mode)).
			Str("amount", amountToPay.String()).
			Msg("settlement rejected")
		return SettleResult{}, err
	}
	s.logger.Info().
		Str("invoice_id", result.Invoice.ID).
		Str("supplier_id", result.Supplier.ID).
		Str("mode", string(mode)).
		Str("from_credit", result.PaidFromCredit.String()).
		Str("from_cash", result.PaidFromCash.String()).
		Str("status", string(result.Invoice.Status)).
		Msg("invoice settled")
	return result, nil
}

func (s *SettlementService) settle(ctx context.Context, invoiceID string, amountToPay decimal.Decimal, mode SettleMode, cashMethod string) (SettleResult, error) {
	if err := money.ValidatePositive(amountToPay); err != nil {
		return SettleResult{}, billing.ErrInvalidAmount
	}

	// Fresh state, fetched immediately before mutating; a stale
	// reporting snapshot must not authorize a payment.
	invoice, supplier, siblings, err := s.loadForUpdate(ctx, invoiceID)
	if err != nil {
		return SettleResult{}, err
	}
	if !invoice.Settleable() {
		return SettleResult{}, billing.ErrInvoiceNotSettleable
	}

	remaining := invoice.RemainingBalance()
	if amountToPay.Cmp(remaining.Add(s.epsilon)) > 0 {
		return SettleResult{}, billing.ErrOverpaymentRejected
	}

	availableCredit := billing.ReconcileBalance(supplier, siblings).CurrentCredit

	var fromCredit, fromCash decimal.Decimal
	switch mode {
	case SettleCreditOnly:
		if availableCredit.Sign() == 0 {
			return SettleResult{}, billing.ErrInsufficientCredit
		}
		fromCredit = money.Min(availableCredit, amountToPay)
		fromCash = decimal.Zero
	case SettleCashOnly:
		fromCredit = decimal.Zero
		fromCash = amountToPay
	case SettleMixed:
		fromCredit = money.Min(availableCredit, amountToPay)
		fromCash = amountToPay.Sub(fromCredit)
	default:
		return SettleResult{}, billing.ErrUnknownSettleMode
	}

	now := s.clock.Now()
	if cashMethod == "" {
		cashMethod = billing.MethodCash
	}

	updated := invoice.Clone()
	if fromCredit.Sign() > 0 {
		updated.ApplySettlement(billing.Settlement{
			ID:             "stl-" + uuid.NewString(),
			Amount:         fromCredit,
			Date:           now,
			Method:         billing.MethodCreditBalance,
			PaidFromCredit: true,
		}, s.epsilon, now)
	}
	var entry *ledger.Entry
	if fromCash.Sign() > 0 {
		updated.ApplySettlement(billing.Settlement{
			ID:             "stl-" + uuid.NewString(),
			Amount:         fromCash,
			Date:           now,
			Method:         cashMethod,
			PaidFromCredit: false,
		}, s.epsilon, now)

		entry, err = ledger.NewEntry(ledger.DirectionOut, fromCash, ledger.CategorySupplierPayment, now)
		if err != nil {
			return SettleResult{}, err
		}
		entry.InvoiceID = updated.ID
		entry.SupplierID = supplier.ID
	}

	freshSupplier := s.refreshSupplier(supplier, siblings, updated)
	if err := s.committer.Commit(ctx, updated, freshSupplier, entry); err != nil {
		return SettleResult{}, err
	}
	if entry != nil {
		metrics.IncLedgerAppend(entry.Category)
	}
	return SettleResult{
		Invoice:        updated,
		Supplier:       freshSupplier,
		LedgerEntry:    entry,
		PaidFromCredit: fromCredit,
		PaidFromCash:   fromCash,
	}, nil
}

// Refund records a negative settlement line reversing part of what was
// paid on the invoice. The paid amount is reduced first and the status
// re-derived, so a paid invoice moves back to partially paid. A cash
// refund appends an inbound ledger entry.
func (s *SettlementService) Refund(ctx context.Context, invoiceID string, amount decimal.Decimal, fromCredit bool, cashMethod string) (SettleResult, error) {
	if err := money.ValidatePositive(amount); err != nil {
		return SettleResult{}, billing.ErrInvalidAmount
	}

	invoice, supplier, siblings, err := s.loadForUpdate(ctx, invoiceID)
	if err != nil {
		return SettleResult{}, err
	}
	if invoice.AmountPaid.Cmp(amount) < 0 {
		return SettleResult{}, billing.ErrRefundExceedsPaid
	}

	now := s.clock.Now()
	method := cashMethod
	if fromCredit {
		method = billing.MethodCreditBalance
	} else if method == "" {
		method = billing.MethodCash
	}

	updated := invoice.Clone()
	updated.ApplySettlement(billing.Settlement{
		ID:             "stl-" + uuid.NewString(),
		Amount:         amount.Neg(),
		Date:           now,
		Method:         method,
		PaidFromCredit: fromCredit,
	}, s.epsilon, now)

	var entry *ledger.Entry
	if !fromCredit {
		entry, err = ledger.NewEntry(ledger.DirectionIn, amount, ledger.CategorySupplierRefund, now)
		if err != nil {
			return SettleResult{}, err
		}
		entry.InvoiceID = updated.ID
		entry.SupplierID = supplier.ID
	}

	freshSupplier := s.refreshSupplier(supplier, siblings, updated)
	if err := s.committer.Commit(ctx, updated, freshSupplier, entry); err != nil {
		return SettleResult{}, err
	}
	if entry != nil {
		metrics.IncLedgerAppend(entry.Category)
	}
	s.logger.Info().
		Str("invoice_id", updated.ID).
		Str("amount", amount.String()).
		Bool("from_credit", fromCredit).
		Msg("settlement refunded")
	return SettleResult{Invoice: updated, Supplier: freshSupplier, LedgerEntry: entry}, nil
}

func (s *SettlementService) loadForUpdate(ctx context.Context, invoiceID string) (*billing.Invoice, *billing.Supplier, []*billing.Invoice, error) {
	invoice, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, nil, err
	}
	if invoice == nil {
		return nil, nil, nil, billing.ErrInvoiceNotFound
	}
	supplier, err := s.suppliers.FindByID(ctx, invoice.SupplierID)
	if err != nil {
		return nil, nil, nil, err
	}
	if supplier == nil {
		return nil, nil, nil, billing.ErrSupplierNotFound
	}
	siblings, err := s.invoices.ListBySupplier(ctx, supplier.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return invoice, supplier, siblings, nil
}

// refreshSupplier re-runs the balance fold with the updated invoice
// substituted in, so the cached columns match the ledger truth the
// moment the commit lands.
func (s *SettlementService) refreshSupplier(supplier *billing.Supplier, siblings []*billing.Invoice, updated *billing.Invoice) *billing.Supplier {
	replayed := make([]*billing.Invoice, 0, len(siblings)+1)
	found := false
	for _, inv := range siblings {
		if inv.ID == updated.ID {
			replayed = append(replayed, updated)
			found = true
			continue
		}
		replayed = append(replayed, inv)
	}
	if !found {
		replayed = append(replayed, updated)
	}
	fresh := supplier.Clone()
	fresh.ApplyBalance(billing.ReconcileBalance(fresh, replayed).Balance)
	return fresh
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, billing.ErrOverpaymentRejected),
		errors.Is(err, billing.ErrInsufficientCredit),
		errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, billing.ErrInvoiceNotSettleable),
		errors.Is(err, billing.ErrRefundExceedsPaid):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
