package memory

import (
	"context"
	"sync"

	commission "voyage-backoffice/internal/commission/domain"
)

// TicketRepository is an in-memory ticket store.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*commission.Ticket
}

// NewTicketRepository constructs a repository.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: make(map[string]*commission.Ticket)}
}

// FindByID loads a ticket.
func (r *TicketRepository) FindByID(ctx context.Context, id string) (*commission.Ticket, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tickets[id].Clone(), nil
}

// ListBySupplier returns the supplier's tickets.
func (r *TicketRepository) ListBySupplier(ctx context.Context, supplierID string) ([]*commission.Ticket, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*commission.Ticket
	for _, t := range r.tickets {
		if t.SupplierID == supplierID {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Save persists a ticket with an optimistic version check.
func (r *TicketRepository) Save(ctx context.Context, ticket *commission.Ticket) error {
	_ = ctx
	if ticket == nil {
		return commission.ErrNilTicket
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tickets[ticket.ID]; ok && existing.Version != ticket.Version {
		return commission.ErrVersionConflict
	}
	clone := ticket.Clone()
	clone.Version++
	r.tickets[ticket.ID] = clone
	ticket.Version = clone.Version
	return nil
}

// RuleRepository is an in-memory ordered rule store.
type RuleRepository struct {
	mu    sync.RWMutex
	rules map[string][]commission.Rule
}

// NewRuleRepository constructs a repository.
func NewRuleRepository() *RuleRepository {
	return &RuleRepository{rules: make(map[string][]commission.Rule)}
}

// ListBySupplier returns the supplier's rules in stored order.
func (r *RuleRepository) ListBySupplier(ctx context.Context, supplierID string) ([]commission.Rule, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]commission.Rule(nil), r.rules[supplierID]...), nil
}

// ReplaceAll stores the supplier's full rule list, preserving order.
func (r *RuleRepository) ReplaceAll(ctx context.Context, supplierID string, rules []commission.Rule) error {
	_ = ctx
	if supplierID == "" {
		return commission.ErrEmptySupplierID
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[supplierID] = append([]commission.Rule(nil), rules...)
	return nil
}
