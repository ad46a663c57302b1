package postgres

import (
	"context"
	"database/sql"
	"errors"

	billing "voyage-backoffice/internal/billing/domain"
	ledger "voyage-backoffice/internal/ledger/domain"
)

// SupplierRepository persists suppliers.
type SupplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository constructs a repository.
func NewSupplierRepository(db *sql.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// FindByID loads a supplier, or nil when absent.
func (r *SupplierRepository) FindByID(ctx context.Context, id string) (*billing.Supplier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("supplier repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, initial_debt, initial_credit, current_debt, current_credit, version
FROM suppliers
WHERE id = $1`, id)
	return scanSupplier(row)
}

// List returns all suppliers.
func (r *SupplierRepository) List(ctx context.Context) ([]*billing.Supplier, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("supplier repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, initial_debt, initial_credit, current_debt, current_credit, version
FROM suppliers
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []*billing.Supplier
	for rows.Next() {
		sup, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, sup)
	}
	return suppliers, rows.Err()
}

// Save persists the supplier with an optimistic version check.
func (r *SupplierRepository) Save(ctx context.Context, supplier *billing.Supplier) error {
	if r == nil || r.db == nil {
		return errors.New("supplier repo: nil db")
	}
	if supplier == nil {
		return billing.ErrNilSupplier
	}
	if err := saveSupplier(ctx, r.db, supplier); err != nil {
		return err
	}
	supplier.Version++
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveSupplier(ctx context.Context, db execer, supplier *billing.Supplier) error {
	res, err := db.ExecContext(ctx, `
UPDATE suppliers SET
	name = $1, initial_debt = $2, initial_credit = $3,
	current_debt = $4, current_credit = $5, version = version + 1
WHERE id = $6 AND version = $7`,
		supplier.Name, supplier.InitialDebt, supplier.InitialCredit,
		supplier.CurrentDebt, supplier.CurrentCredit,
		supplier.ID, supplier.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrVersionConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (*billing.Supplier, error) {
	var sup billing.Supplier
	err := row.Scan(
		&sup.ID, &sup.Name,
		&sup.InitialDebt, &sup.InitialCredit,
		&sup.CurrentDebt, &sup.CurrentCredit,
		&sup.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

// InvoiceRepository persists invoices and their settlement lines.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// FindByID loads an invoice with its settlements, or nil when absent.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, supplier_id, number, gross_total, amount_paid, status, issued_at, updated_at, version
FROM invoices
WHERE id = $1`, id)
	invoice, err := scanInvoice(row)
	if err != nil || invoice == nil {
		return invoice, err
	}
	if err := r.loadSettlements(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// ListBySupplier returns the supplier's invoices with settlements.
func (r *InvoiceRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*billing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, supplier_id, number, gross_total, amount_paid, status, issued_at, updated_at, version
FROM invoices
WHERE supplier_id = $1
ORDER BY issued_at`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if err := r.loadSettlements(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// Save inserts or updates the invoice and rewrites its settlement lines
// in one transaction, with an optimistic version check on update.
func (r *InvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveInvoiceTx(ctx, tx, invoice); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	invoice.Version++
	return nil
}

func saveInvoiceTx(ctx context.Context, tx *sql.Tx, invoice *billing.Invoice) error {
	if invoice.Version == 0 {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO invoices (
	id, supplier_id, number, gross_total, amount_paid, status, issued_at, updated_at, version
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0)
ON CONFLICT (id) DO NOTHING`,
			invoice.ID, invoice.SupplierID, invoice.Number,
			invoice.GrossTotal, invoice.AmountPaid, string(invoice.Status),
			invoice.IssuedAt, invoice.UpdatedAt); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `
UPDATE invoices SET
	number = $1, gross_total = $2, amount_paid = $3, status = $4,
	updated_at = $5, version = version + 1
WHERE id = $6 AND version = $7`,
		invoice.Number, invoice.GrossTotal, invoice.AmountPaid, string(invoice.Status),
		invoice.UpdatedAt, invoice.ID, invoice.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_settlements WHERE invoice_id = $1`, invoice.ID); err != nil {
		return err
	}
	for _, s := range invoice.Settlements {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO invoice_settlements (id, invoice_id, amount, settled_at, method, paid_from_credit)
VALUES ($1,$2,$3,$4,$5,$6)`,
			s.ID, invoice.ID, s.Amount, s.Date, s.Method, s.PaidFromCredit); err != nil {
			return err
		}
	}
	for _, ticketID := range invoice.TicketIDs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO invoice_tickets (invoice_id, ticket_id)
VALUES ($1,$2)
ON CONFLICT DO NOTHING`, invoice.ID, ticketID); err != nil {
			return err
		}
	}
	return nil
}

func (r *InvoiceRepository) loadSettlements(ctx context.Context, invoice *billing.Invoice) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, amount, settled_at, method, paid_from_credit
FROM invoice_settlements
WHERE invoice_id = $1
ORDER BY settled_at, id`, invoice.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s billing.Settlement
		if err := rows.Scan(&s.ID, &s.Amount, &s.Date, &s.Method, &s.PaidFromCredit); err != nil {
			return err
		}
		invoice.Settlements = append(invoice.Settlements, s)
	}
	return rows.Err()
}

func scanInvoice(row rowScanner) (*billing.Invoice, error) {
	var inv billing.Invoice
	err := row.Scan(
		&inv.ID, &inv.SupplierID, &inv.Number,
		&inv.GrossTotal, &inv.AmountPaid, &inv.Status,
		&inv.IssuedAt, &inv.UpdatedAt, &inv.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// SettlementCommitter writes a settlement outcome in one transaction:
// invoice + settlement lines, supplier balance cache, and the optional
// cash ledger entry. Version conflicts roll everything back.
type SettlementCommitter struct {
	db *sql.DB
}

// NewSettlementCommitter constructs a committer.
func NewSettlementCommitter(db *sql.DB) *SettlementCommitter {
	return &SettlementCommitter{db: db}
}

// Commit persists the settlement atomically.
func (c *SettlementCommitter) Commit(ctx context.Context, invoice *billing.Invoice, supplier *billing.Supplier, entry *ledger.Entry) error {
	if c == nil || c.db == nil {
		return errors.New("settlement committer: nil db")
	}
	if invoice == nil {
		return billing.ErrNilInvoice
	}
	if supplier == nil {
		return billing.ErrNilSupplier
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := saveInvoiceTx(ctx, tx, invoice); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := saveSupplier(ctx, tx, supplier); err != nil {
		_ = tx.Rollback()
		return err
	}
	if entry != nil {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO cash_ledger_entries (
	id, direction, amount, category, invoice_id, supplier_id, client_id,
	note, entry_date, status, cancellation_of
) VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),$8,$9,$10,NULLIF($11,''))`,
			entry.ID, string(entry.Direction), entry.Amount, entry.Category,
			entry.InvoiceID, entry.SupplierID, entry.ClientID,
			entry.Note, entry.Date, string(entry.Status), entry.CancellationOf); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	invoice.Version++
	supplier.Version++
	return nil
}
