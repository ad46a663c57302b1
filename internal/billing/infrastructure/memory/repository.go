package memory

import (
	"context"
	"sort"
	"sync"

	billing "voyage-backoffice/internal/billing/domain"
	ledger "voyage-backoffice/internal/ledger/domain"
)

// LedgerAppender receives the cash entry of a committed settlement.
type LedgerAppender interface {
	Append(ctx context.Context, entry *ledger.Entry) error
}

// Store is an in-memory billing store: suppliers, invoices and the
// settlement committer, sharing one lock so commits are atomic.
type Store struct {
	mu        sync.RWMutex
	suppliers map[string]*billing.Supplier
	invoices  map[string]*billing.Invoice
	ledger    LedgerAppender
}

// NewStore constructs a store. The ledger appender may be nil when no
// cash entries are expected.
func NewStore(ledgerAppender LedgerAppender) *Store {
	return &Store{
		suppliers: make(map[string]*billing.Supplier),
		invoices:  make(map[string]*billing.Invoice),
		ledger:    ledgerAppender,
	}
}

// FindByID loads a supplier.
func (s *Store) FindByID(ctx context.Context, id string) (*billing.Supplier, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suppliers[id].Clone(), nil
}

// List returns all suppliers sorted by id.
func (s *Store) List(ctx context.Context) ([]*billing.Supplier, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*billing.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save persists a supplier with an optimistic version check.
func (s *Store) Save(ctx context.Context, supplier *billing.Supplier) error {
	_ = ctx
	if supplier == nil {
		return billing.ErrNilSupplier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveSupplierLocked(supplier)
}

func (s *Store) saveSupplierLocked(supplier *billing.Supplier) error {
	if existing, ok := s.suppliers[supplier.ID]; ok && existing.Version != supplier.Version {
		return billing.ErrVersionConflict
	}
	clone := supplier.Clone()
	clone.Version++
	s.suppliers[supplier.ID] = clone
	supplier.Version = clone.Version
	return nil
}

// Invoices returns the invoice half of the store.
func (s *Store) Invoices() *InvoiceRepository { return &InvoiceRepository{store: s} }

// InvoiceRepository exposes the store's invoices.
type InvoiceRepository struct {
	store *Store
}

// FindByID loads an invoice.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*billing.Invoice, error) {
	_ = ctx
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.invoices[id].Clone(), nil
}

// ListBySupplier returns the supplier's invoices sorted by issue date.
func (r *InvoiceRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*billing.Invoice, error) {
	_ = ctx
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*billing.Invoice
	for _, inv := range r.store.invoices {
		if inv.SupplierID == supplierID {
			out = append(out, inv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

// Save persists an invoice with an optimistic version check.
func (r *InvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	_ = ctx
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.saveInvoiceLocked(invoice)
}

func (s *Store) saveInvoiceLocked(invoice *billing.Invoice) error {
	if existing, ok := s.invoices[invoice.ID]; ok && existing.Version != invoice.Version {
		return billing.ErrVersionConflict
	}
	clone := invoice.Clone()
	clone.Version++
	s.invoices[invoice.ID] = clone
	invoice.Version = clone.Version
	return nil
}

// Commit persists a settled invoice, the refreshed supplier, and the
// optional cash ledger entry under one lock.
func (s *Store) Commit(ctx context.Context, invoice *billing.Invoice, supplier *billing.Supplier, entry *ledger.Entry) error {
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	if supplier == nil {
		return billing.ErrNilSupplier
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Check both versions before writing anything; a conflict must
	// leave no partial mutation.
	if existing, ok := s.invoices[invoice.ID]; ok && existing.Version != invoice.Version {
		return billing.ErrVersionConflict
	}
	if existing, ok := s.suppliers[supplier.ID]; ok && existing.Version != supplier.Version {
		return billing.ErrVersionConflict
	}
	if err := s.saveInvoiceLocked(invoice); err != nil {
		return err
	}
	if err := s.saveSupplierLocked(supplier); err != nil {
		return err
	}
	if entry != nil && s.ledger != nil {
		if err := s.ledger.Append(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
