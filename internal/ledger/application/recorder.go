package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	ledger "voyage-backoffice/internal/ledger/domain"
	"voyage-backoffice/internal/observability/metrics"
)

// EntryRepository persists ledger entries.
type EntryRepository interface {
	FindByID(ctx context.Context, id string) (*ledger.Entry, error)
	Append(ctx context.Context, entry *ledger.Entry) error
	// Cancel flips the original to cancelled and appends the
	// counterpart in one transaction.
	Cancel(ctx context.Context, original, counterpart *ledger.Entry) error
	ListRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Report summarizes the cash register over a date range.
type Report struct {
	Balance        decimal.Decimal
	CategoryTotals map[string]decimal.Decimal
	EntryCount     int
}

// Recorder is the cash ledger recorder: append-only writes plus the
// cancellation protocol. History is never deleted.
type Recorder struct {
	repo   EntryRepository
	clock  Clock
	logger zerolog.Logger
}

// NewRecorder constructs the recorder.
func NewRecorder(repo EntryRepository, clock Clock, logger zerolog.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, errors.New("ledger recorder: nil repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Recorder{repo: repo, clock: clock, logger: logger}, nil
}

// Append validates and persists a new active entry.
func (r *Recorder) Append(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	if entry == nil {
		return nil, ledger.ErrNilEntry
	}
	if entry.ID == "" {
		entry.ID = "op-" + uuid.NewString()
	}
	if entry.Date.IsZero() {
		entry.Date = r.clock.Now()
	}
	if entry.Status == "" {
		entry.Status = ledger.StatusActive
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	metrics.IncLedgerAppend(entry.Category)
	r.logger.Info().
		Str("entry_id", entry.ID).
		Str("direction", string(entry.Direction)).
		Str("category", entry.Category).
		Str("amount", entry.Amount.String()).
		Msg("ledger entry appended")
	return entry, nil
}

// Cancel reverses an entry without deleting it: the original is flipped
// to cancelled and an opposite-direction counterpart is appended, so
// the active-balance fold reads as if the entry never existed while the
// audit log retains both rows.
func (r *Recorder) Cancel(ctx context.Context, entryID string) (*ledger.Entry, error) {
	original, err := r.repo.FindByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledger.ErrEntryNotFound
	}
	if original.Status == ledger.StatusCancelled {
		return nil, ledger.ErrAlreadyCancelled
	}
	if original.CancellationOf != "" {
		return nil, ledger.ErrCancellationEntry
	}

	counterpart := original.CancellationEntry(r.clock.Now())
	original.Status = ledger.StatusCancelled
	if err := r.repo.Cancel(ctx, original, counterpart); err != nil {
		return nil, err
	}
	metrics.IncLedgerCancel()
	r.logger.Info().
		Str("entry_id", original.ID).
		Str("counterpart_id", counterpart.ID).
		Msg("ledger entry cancelled")
	return counterpart, nil
}

// Balance folds the counted entries in the range.
func (r *Recorder) Balance(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	entries, err := r.repo.ListRange(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.Balance(entries), nil
}

// BuildReport folds the range into balance and per-category totals.
func (r *Recorder) BuildReport(ctx context.Context, from, to time.Time) (Report, error) {
	entries, err := r.repo.ListRange(ctx, from, to)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Balance:        ledger.Balance(entries),
		CategoryTotals: ledger.CategoryTotals(entries),
		EntryCount:     len(entries),
	}, nil
}
