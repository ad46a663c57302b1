package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when an entry amount is not positive.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
	// ErrUnknownDirection is returned for a direction outside in/out.
	ErrUnknownDirection = errors.New("ledger: unknown direction")
	// ErrEmptyCategory is returned when an entry has no category.
	ErrEmptyCategory = errors.New("ledger: empty category")
	// ErrEntryNotFound is returned when an entry is not found.
	ErrEntryNotFound = errors.New("ledger: entry not found")
	// ErrAlreadyCancelled is returned when cancelling a cancelled entry.
	ErrAlreadyCancelled = errors.New("ledger: entry already cancelled")
	// ErrCancellationEntry is returned when cancelling a cancellation
	// counterpart; history stays append-only, reversals are not undone.
	ErrCancellationEntry = errors.New("ledger: cannot cancel a cancellation entry")
	// ErrNilEntry is returned when a nil entry is supplied.
	ErrNilEntry = errors.New("ledger: nil entry")
)
