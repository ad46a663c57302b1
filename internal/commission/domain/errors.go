package commission

import "errors"

var (
	// ErrEmptySupplierID is returned when a supplier id is empty.
	ErrEmptySupplierID = errors.New("commission: empty supplier id")
	// ErrTicketNotFound is returned when a ticket is not found.
	ErrTicketNotFound = errors.New("commission: ticket not found")
	// ErrRuleNotFound is returned when a rule is not found.
	ErrRuleNotFound = errors.New("commission: rule not found")
	// ErrNegativeRuleValue is returned when a rule carries a negative value.
	ErrNegativeRuleValue = errors.New("commission: negative rule value")
	// ErrUnknownRuleMode signals a malformed rule; this is a programmer
	// error, not a user-recoverable condition.
	ErrUnknownRuleMode = errors.New("commission: unknown rule mode")
	// ErrUnknownRuleBase signals a malformed percentage rule base.
	ErrUnknownRuleBase = errors.New("commission: unknown rule base")
	// ErrAmbiguousRuleEdit is returned when adding a rule whose matching
	// criteria duplicate an existing rule with a different value.
	ErrAmbiguousRuleEdit = errors.New("commission: duplicate rule criteria with conflicting value")
	// ErrRuleIndexOutOfRange is returned for an invalid insert position.
	ErrRuleIndexOutOfRange = errors.New("commission: rule index out of range")
	// ErrNilTicket is returned when a nil ticket is supplied.
	ErrNilTicket = errors.New("commission: nil ticket")
	// ErrVersionConflict is returned when a concurrent edit won.
	ErrVersionConflict = errors.New("commission: version conflict")
)
