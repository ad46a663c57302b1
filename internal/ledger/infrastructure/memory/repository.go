package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	ledger "voyage-backoffice/internal/ledger/domain"
)

// EntryRepository is an in-memory append-only ledger for tests and the
// demo wiring.
type EntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*ledger.Entry
	order   []string
}

// NewEntryRepository constructs a repository.
func NewEntryRepository() *EntryRepository {
	return &EntryRepository{entries: make(map[string]*ledger.Entry)}
}

// FindByID loads an entry.
func (r *EntryRepository) FindByID(ctx context.Context, id string) (*ledger.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].Clone(), nil
}

// Append stores a new entry.
func (r *EntryRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	_ = ctx
	if entry == nil {
		return ledger.ErrNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.ID]; !exists {
		r.order = append(r.order, entry.ID)
	}
	r.entries[entry.ID] = entry.Clone()
	return nil
}

// Cancel flips the original and appends the counterpart atomically.
func (r *EntryRepository) Cancel(ctx context.Context, original, counterpart *ledger.Entry) error {
	_ = ctx
	if original == nil || counterpart == nil {
		return ledger.ErrNilEntry
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[original.ID]; !exists {
		return ledger.ErrEntryNotFound
	}
	r.entries[original.ID] = original.Clone()
	r.entries[counterpart.ID] = counterpart.Clone()
	r.order = append(r.order, counterpart.ID)
	return nil
}

// ListRange returns entries within [from, to] in append order. Zero
// bounds are open.
func (r *EntryRepository) ListRange(ctx context.Context, from, to time.Time) ([]*ledger.Entry, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*ledger.Entry
	for _, id := range r.order {
		e := r.entries[id]
		if !from.IsZero() && e.Date.Before(from) {
			continue
		}
		if !to.IsZero() && e.Date.After(to) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
