package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	ledger "voyage-backoffice/internal/ledger/domain"
)

// EntryRepository persists cash ledger entries.
type EntryRepository struct {
	db *sql.DB
}

// NewEntryRepository constructs a repository.
func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// FindByID loads an entry, or nil when absent.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*ledger.Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ledger repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, direction, amount, category, invoice_id, supplier_id, client_id,
	note, entry_date, status, cancellation_of
FROM cash_ledger_entries
WHERE id = $1`, id)
	return scanEntry(row)
}

// Append inserts a new entry. Entries are never updated afterwards
// except for the status flip performed by Cancel.
func (r *EntryRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	if entry == nil {
		return ledger.ErrNilEntry
	}
	return insertEntry(ctx, r.db, entry)
}

// Cancel flips the original to cancelled and appends the counterpart in
// one transaction.
func (r *EntryRepository) Cancel(ctx context.Context, original, counterpart *ledger.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("ledger repo: nil db")
	}
	if original == nil || counterpart == nil {
		return ledger.ErrNilEntry
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
UPDATE cash_ledger_entries SET status = $1
WHERE id = $2 AND status = $3`,
		string(ledger.StatusCancelled), original.ID, string(ledger.StatusActive))
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return ledger.ErrAlreadyCancelled
	}
	if err := insertEntry(ctx, tx, counterpart); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ListRange returns entries within [from, to], oldest first. Zero
// bounds are open.
func (r *EntryRepository) ListRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ledger repo: nil db")
	}
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Now().Add(24 * time.Hour)
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, direction, amount, category, invoice_id, supplier_id, client_id,
	note, entry_date, status, cancellation_of
FROM cash_ledger_entries
WHERE entry_date >= $1 AND entry_date <= $2
ORDER BY entry_date, id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, entry *ledger.Entry) error {
	_, err := db.ExecContext(ctx, `
INSERT INTO cash_ledger_entries (
	id, direction, amount, category, invoice_id, supplier_id, client_id,
	note, entry_date, status, cancellation_of
) VALUES ($1,$2,$3,$4,NULLIF($5,''),NULLIF($6,''),NULLIF($7,''),$8,$9,$10,NULLIF($11,''))`,
		entry.ID, string(entry.Direction), entry.Amount, entry.Category,
		entry.InvoiceID, entry.SupplierID, entry.ClientID,
		entry.Note, entry.Date, string(entry.Status), entry.CancellationOf)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*ledger.Entry, error) {
	var (
		e                              ledger.Entry
		invoiceID, supplierID          sql.NullString
		clientID, cancellationOf, note sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.Direction, &e.Amount, &e.Category,
		&invoiceID, &supplierID, &clientID,
		&note, &e.Date, &e.Status, &cancellationOf,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.InvoiceID = invoiceID.String
	e.SupplierID = supplierID.String
	e.ClientID = clientID.String
	e.Note = note.String
	e.CancellationOf = cancellationOf.String
	return &e, nil
}
