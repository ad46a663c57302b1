package billing

import "errors"

var (
	// ErrInvalidAmount is returned when an amount is zero or negative.
	ErrInvalidAmount = errors.New("billing: amount must be positive")
	// ErrSupplierNotFound is returned when a supplier is missing.
	ErrSupplierNotFound = errors.New("billing: supplier not found")
	// ErrInvoiceNotFound is returned when an invoice is missing.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrOverpaymentRejected is returned when a payment exceeds the
	// invoice's remaining balance.
	ErrOverpaymentRejected = errors.New("billing: amount exceeds remaining balance")
	// ErrInsufficientCredit is returned when a credit-only settlement is
	// requested with no available credit.
	ErrInsufficientCredit = errors.New("billing: insufficient supplier credit")
	// ErrInvoiceNotSettleable is returned for settlements against a
	// cancelled or already paid invoice.
	ErrInvoiceNotSettleable = errors.New("billing: invoice not settleable")
	// ErrRefundExceedsPaid is returned when a refund exceeds the amount
	// actually paid on the invoice.
	ErrRefundExceedsPaid = errors.New("billing: refund exceeds amount paid")
	// ErrUnknownSettleMode is returned for an unrecognized settle mode.
	ErrUnknownSettleMode = errors.New("billing: unknown settle mode")
	// ErrVersionConflict is returned when a concurrent update won the
	// optimistic check; the caller must re-fetch and retry.
	ErrVersionConflict = errors.New("billing: version conflict")
	// ErrNilSupplier is returned when a nil supplier is supplied.
	ErrNilSupplier = errors.New("billing: nil supplier")
	// ErrNilInvoice is returned when a nil invoice is supplied.
	ErrNilInvoice = errors.New("billing: nil invoice")
	// ErrNoUninvoicedTickets is returned when invoice batching finds
	// nothing to group.
	ErrNoUninvoicedTickets = errors.New("billing: no uninvoiced tickets")
)
