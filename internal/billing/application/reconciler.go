package application

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	billing "voyage-backoffice/internal/billing/domain"
	"voyage-backoffice/internal/observability/metrics"
)

// SupplierRepository loads and stores suppliers.
type SupplierRepository interface {
	FindByID(ctx context.Context, id string) (*billing.Supplier, error)
	List(ctx context.Context) ([]*billing.Supplier, error)
	// Save persists the supplier with an optimistic version check.
	Save(ctx context.Context, supplier *billing.Supplier) error
}

// InvoiceRepository loads and stores invoices with their settlements.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id string) (*billing.Invoice, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*billing.Invoice, error)
	// Save persists the invoice with an optimistic version check.
	Save(ctx context.Context, invoice *billing.Invoice) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SupplierBalance pairs a supplier with its reconciled position.
type SupplierBalance struct {
	Supplier *billing.Supplier
	Detail   billing.BalanceDetail
}

// Reconciler is the read path for supplier balances. It replays
// invoices and settlements through the domain fold; reads are
// side-effect free and run without locking, at the cost of a
// possibly-stale snapshot. Only RefreshCached writes, and all it writes
// is the cache columns.
type Reconciler struct {
	suppliers SupplierRepository
	invoices  InvoiceRepository
	logger    zerolog.Logger
}

// NewReconciler constructs the reconciler.
func NewReconciler(suppliers SupplierRepository, invoices InvoiceRepository, logger zerolog.Logger) (*Reconciler, error) {
	if suppliers == nil {
		return nil, errors.New("reconciler: nil supplier repository")
	}
	if invoices == nil {
		return nil, errors.New("reconciler: nil invoice repository")
	}
	return &Reconciler{suppliers: suppliers, invoices: invoices, logger: logger}, nil
}

// ReconcileOne recomputes one supplier's position.
func (r *Reconciler) ReconcileOne(ctx context.Context, supplierID string) (billing.BalanceDetail, error) {
	started := time.Now()
	supplier, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return billing.BalanceDetail{}, err
	}
	if supplier == nil {
		return billing.BalanceDetail{}, billing.ErrSupplierNotFound
	}
	invoices, err := r.invoices.ListBySupplier(ctx, supplierID)
	if err != nil {
		return billing.BalanceDetail{}, err
	}
	detail := billing.ReconcileBalance(supplier, invoices)
	metrics.ObserveReconcile(time.Since(started).Seconds())
	return detail, nil
}

// ReconcileAll recomputes every supplier's position in one pass, for
// reporting.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]SupplierBalance, error) {
	started := time.Now()
	suppliers, err := r.suppliers.List(ctx)
	if err != nil {
		return nil, err
	}
	balances := make([]SupplierBalance, 0, len(suppliers))
	for _, sup := range suppliers {
		invoices, err := r.invoices.ListBySupplier(ctx, sup.ID)
		if err != nil {
			return nil, err
		}
		balances = append(balances, SupplierBalance{
			Supplier: sup,
			Detail:   billing.ReconcileBalance(sup, invoices),
		})
	}
	metrics.ObserveReconcile(time.Since(started).Seconds())
	return balances, nil
}

// RefreshCached recomputes one supplier's position and writes it back
// to the cached balance columns.
func (r *Reconciler) RefreshCached(ctx context.Context, supplierID string) (billing.BalanceDetail, error) {
	supplier, err := r.suppliers.FindByID(ctx, supplierID)
	if err != nil {
		return billing.BalanceDetail{}, err
	}
	if supplier == nil {
		return billing.BalanceDetail{}, billing.ErrSupplierNotFound
	}
	invoices, err := r.invoices.ListBySupplier(ctx, supplierID)
	if err != nil {
		return billing.BalanceDetail{}, err
	}
	detail := billing.ReconcileBalance(supplier, invoices)
	supplier.ApplyBalance(detail.Balance)
	if err := r.suppliers.Save(ctx, supplier); err != nil {
		return billing.BalanceDetail{}, err
	}
	r.logger.Debug().
		Str("supplier_id", supplierID).
		Str("debt", detail.CurrentDebt.String()).
		Str("credit", detail.CurrentCredit.String()).
		Msg("supplier balance cache refreshed")
	return detail, nil
}
