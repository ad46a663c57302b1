package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	ledger "voyage-backoffice/internal/ledger/domain"
	"voyage-backoffice/internal/ledger/infrastructure/memory"
)

func newRecorder(t *testing.T) (*Recorder, *memory.EntryRepository) {
	t.Helper()
	repo := memory.NewEntryRepository()
	rec, err := NewRecorder(repo, SystemClock{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	return rec, repo
}

func appendEntry(t *testing.T, rec *Recorder, direction ledger.Direction, amount int64, category string) *ledger.Entry {
	t.Helper()
	entry, err := ledger.NewEntry(direction, decimal.NewFromInt(amount), category, time.Now())
	if err != nil {
		t.Fatalf("new entry: %v", err)
	}
	saved, err := rec.Append(context.Background(), entry)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return saved
}

func TestAppendAndBalance(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	appendEntry(t, rec, ledger.DirectionIn, 10000, ledger.CategoryClientPayment)
	appendEntry(t, rec, ledger.DirectionOut, 3000, ledger.CategorySupplierPayment)
	appendEntry(t, rec, ledger.DirectionOut, 500, ledger.CategoryExpense)

	balance, err := rec.Balance(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(6500)) {
		t.Fatalf("expected balance 6500, got %s", balance)
	}
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	bad := &ledger.Entry{Direction: "sideways", Amount: decimal.NewFromInt(100), Category: "expense"}
	if _, err := rec.Append(ctx, bad); !errors.Is(err, ledger.ErrUnknownDirection) {
		t.Fatalf("expected ErrUnknownDirection, got %v", err)
	}
	zero := &ledger.Entry{Direction: ledger.DirectionIn, Amount: decimal.Zero, Category: "expense"}
	if _, err := rec.Append(ctx, zero); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := rec.Append(ctx, nil); !errors.Is(err, ledger.ErrNilEntry) {
		t.Fatalf("expected ErrNilEntry, got %v", err)
	}
}

func TestCancelPreservesHistoryAndBalance(t *testing.T) {
	rec, repo := newRecorder(t)
	ctx := context.Background()

	appendEntry(t, rec, ledger.DirectionIn, 10000, ledger.CategoryClientPayment)
	payment := appendEntry(t, rec, ledger.DirectionOut, 3000, ledger.CategorySupplierPayment)

	before, err := rec.Balance(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}

	counterpart, err := rec.Cancel(ctx, payment.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if counterpart.Direction != ledger.DirectionIn {
		t.Fatalf("expected counterpart to flip direction, got %s", counterpart.Direction)
	}
	if counterpart.CancellationOf != payment.ID {
		t.Fatalf("expected counterpart linked to %s, got %s", payment.ID, counterpart.CancellationOf)
	}

	after, err := rec.Balance(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("balance after cancel: %v", err)
	}
	// Cancelling re-adds what the payment removed.
	if !after.Equal(before.Add(payment.Amount)) {
		t.Fatalf("expected balance %s after cancel, got %s", before.Add(payment.Amount), after)
	}

	entries, err := repo.ListRange(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected both rows retained plus the original, got %d", len(entries))
	}
	original, err := repo.FindByID(ctx, payment.ID)
	if err != nil {
		t.Fatalf("find original: %v", err)
	}
	if original.Status != ledger.StatusCancelled {
		t.Fatalf("expected original flagged cancelled, got %s", original.Status)
	}
}

func TestCancelTwiceRejected(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	entry := appendEntry(t, rec, ledger.DirectionOut, 1000, ledger.CategoryExpense)
	if _, err := rec.Cancel(ctx, entry.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := rec.Cancel(ctx, entry.ID); !errors.Is(err, ledger.ErrAlreadyCancelled) {
		t.Fatalf("expected ErrAlreadyCancelled, got %v", err)
	}
}

func TestCancelCounterpartRejected(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	entry := appendEntry(t, rec, ledger.DirectionOut, 1000, ledger.CategoryExpense)
	counterpart, err := rec.Cancel(ctx, entry.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := rec.Cancel(ctx, counterpart.ID); !errors.Is(err, ledger.ErrCancellationEntry) {
		t.Fatalf("expected ErrCancellationEntry, got %v", err)
	}
}

func TestCancelMissingEntry(t *testing.T) {
	rec, _ := newRecorder(t)
	if _, err := rec.Cancel(context.Background(), "op-missing"); !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestBuildReport(t *testing.T) {
	rec, _ := newRecorder(t)
	ctx := context.Background()

	appendEntry(t, rec, ledger.DirectionIn, 10000, ledger.CategoryClientPayment)
	appendEntry(t, rec, ledger.DirectionOut, 3000, ledger.CategorySupplierPayment)
	appendEntry(t, rec, ledger.DirectionOut, 700, ledger.CategoryExpense)

	report, err := rec.BuildReport(ctx, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !report.Balance.Equal(decimal.NewFromInt(6300)) {
		t.Fatalf("expected balance 6300, got %s", report.Balance)
	}
	if report.EntryCount != 3 {
		t.Fatalf("expected 3 entries, got %d", report.EntryCount)
	}
	if !report.CategoryTotals[ledger.CategorySupplierPayment].Equal(decimal.NewFromInt(-3000)) {
		t.Fatalf("expected supplier_payment total -3000, got %s", report.CategoryTotals[ledger.CategorySupplierPayment])
	}
	if !report.CategoryTotals[ledger.CategoryClientPayment].Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected client_payment total 10000, got %s", report.CategoryTotals[ledger.CategoryClientPayment])
	}
}
