package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	commission "voyage-backoffice/internal/commission/domain"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// TicketRepository persists tickets and their cached commission tuple.
type TicketRepository struct {
	db *sql.DB
}

// NewTicketRepository constructs a repository.
func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// FindByID loads a ticket, or nil when absent.
func (r *TicketRepository) FindByID(ctx context.Context, id string) (*commission.Ticket, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ticket repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, supplier_id, carrier, passenger_type, flight_type, cabin_class,
	gross_ht, gross_ttc, taxes,
	commission, net_supplier_amount, applied_rule_id, reason, computed_at,
	invoice_id, version
FROM tickets
WHERE id = $1`, id)
	return scanTicket(row)
}

// ListBySupplier returns the supplier's tickets.
func (r *TicketRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*commission.Ticket, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("ticket repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, supplier_id, carrier, passenger_type, flight_type, cabin_class,
	gross_ht, gross_ttc, taxes,
	commission, net_supplier_amount, applied_rule_id, reason, computed_at,
	invoice_id, version
FROM tickets
WHERE supplier_id = $1
ORDER BY id`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []*commission.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Save updates the ticket's derived fields and invoice link with an
// optimistic version check. The whole commission tuple is written in
// one statement so it can never be patched field by field.
func (r *TicketRepository) Save(ctx context.Context, ticket *commission.Ticket) error {
	if r == nil || r.db == nil {
		return errors.New("ticket repo: nil db")
	}
	if ticket == nil {
		return commission.ErrNilTicket
	}

	var (
		commissionAmt, netAmt sql.NullString
		appliedRuleID, reason sql.NullString
		computedAt            sql.NullTime
	)
	if ticket.Result != nil {
		commissionAmt = sql.NullString{String: ticket.Result.Commission.String(), Valid: true}
		netAmt = sql.NullString{String: ticket.Result.NetSupplierAmount.String(), Valid: true}
		if ticket.Result.AppliedRuleID != "" {
			appliedRuleID = sql.NullString{String: ticket.Result.AppliedRuleID, Valid: true}
		}
		reason = sql.NullString{String: ticket.Result.Reason, Valid: true}
		computedAt = sql.NullTime{Time: ticket.Result.ComputedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE tickets SET
	commission = $1, net_supplier_amount = $2, applied_rule_id = $3,
	reason = $4, computed_at = $5, invoice_id = NULLIF($6, ''), version = version + 1
WHERE id = $7 AND version = $8`,
		commissionAmt, netAmt, appliedRuleID, reason, computedAt,
		ticket.InvoiceID, ticket.ID, ticket.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return commission.ErrVersionConflict
	}
	ticket.Version++
	return nil
}

// Insert stores a freshly imported ticket.
func (r *TicketRepository) Insert(ctx context.Context, ticket *commission.Ticket) error {
	if r == nil || r.db == nil {
		return errors.New("ticket repo: nil db")
	}
	if ticket == nil {
		return commission.ErrNilTicket
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO tickets (
	id, supplier_id, carrier, passenger_type, flight_type, cabin_class,
	gross_ht, gross_ttc, taxes, version
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,0)`,
		ticket.ID, ticket.SupplierID,
		ticket.Attrs.Carrier, ticket.Attrs.PassengerType, ticket.Attrs.FlightType, ticket.Attrs.CabinClass,
		ticket.GrossHT, ticket.GrossTTC, ticket.Taxes)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*commission.Ticket, error) {
	var (
		t                     commission.Ticket
		commissionAmt, netAmt sql.NullString
		appliedRuleID, reason sql.NullString
		computedAt            sql.NullTime
		invoiceID             sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.SupplierID,
		&t.Attrs.Carrier, &t.Attrs.PassengerType, &t.Attrs.FlightType, &t.Attrs.CabinClass,
		&t.GrossHT, &t.GrossTTC, &t.Taxes,
		&commissionAmt, &netAmt, &appliedRuleID, &reason, &computedAt,
		&invoiceID, &t.Version,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if reason.Valid {
		result := commission.Result{Reason: reason.String}
		if commissionAmt.Valid {
			result.Commission, err = parseDecimal(commissionAmt.String)
			if err != nil {
				return nil, err
			}
		}
		if netAmt.Valid {
			result.NetSupplierAmount, err = parseDecimal(netAmt.String)
			if err != nil {
				return nil, err
			}
		}
		if appliedRuleID.Valid {
			result.AppliedRuleID = appliedRuleID.String
		}
		if computedAt.Valid {
			result.ComputedAt = computedAt.Time.UTC()
		}
		t.Result = &result
	}
	if invoiceID.Valid {
		t.InvoiceID = invoiceID.String
	}
	return &t, nil
}

// RuleRepository persists a supplier's ordered commission rules.
type RuleRepository struct {
	db *sql.DB
}

// NewRuleRepository constructs a repository.
func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// ListBySupplier returns rules ordered by stored position.
func (r *RuleRepository) ListBySupplier(ctx context.Context, supplierID string) ([]commission.Rule, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rule repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, supplier_id, carrier, passenger_type, flight_type, cabin_class,
	mode, value, base
FROM commission_rules
WHERE supplier_id = $1
ORDER BY position`, supplierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []commission.Rule
	for rows.Next() {
		var (
			rule commission.Rule
			base sql.NullString
		)
		if err := rows.Scan(
			&rule.ID, &rule.SupplierID,
			&rule.Carrier, &rule.PassengerType, &rule.FlightType, &rule.CabinClass,
			&rule.Mode, &rule.Value, &base,
		); err != nil {
			return nil, err
		}
		if base.Valid {
			rule.Base = commission.RuleBase(base.String)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ReplaceAll rewrites the supplier's rule list in one transaction,
// storing positions so insertion order survives edits.
func (r *RuleRepository) ReplaceAll(ctx context.Context, supplierID string, rules []commission.Rule) error {
	if r == nil || r.db == nil {
		return errors.New("rule repo: nil db")
	}
	if supplierID == "" {
		return commission.ErrEmptySupplierID
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM commission_rules WHERE supplier_id = $1`, supplierID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for pos, rule := range rules {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO commission_rules (
	id, supplier_id, position, carrier, passenger_type, flight_type, cabin_class,
	mode, value, base, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NULLIF($10,''),$11)`,
			rule.ID, supplierID, pos,
			rule.Carrier, rule.PassengerType, rule.FlightType, rule.CabinClass,
			string(rule.Mode), rule.Value, string(rule.Base), time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
