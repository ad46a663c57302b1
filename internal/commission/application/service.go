package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	commission "voyage-backoffice/internal/commission/domain"
	"voyage-backoffice/internal/observability/metrics"
)

// TicketRepository loads and stores tickets.
type TicketRepository interface {
	FindByID(ctx context.Context, id string) (*commission.Ticket, error)
	ListBySupplier(ctx context.Context, supplierID string) ([]*commission.Ticket, error)
	Save(ctx context.Context, ticket *commission.Ticket) error
}

// RuleRepository loads and stores a supplier's ordered rule list.
type RuleRepository interface {
	ListBySupplier(ctx context.Context, supplierID string) ([]commission.Rule, error)
	ReplaceAll(ctx context.Context, supplierID string, rules []commission.Rule) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PreviewInput are the facts needed to preview a commission without a
// persisted ticket.
type PreviewInput struct {
	Attrs    commission.TicketAttributes
	GrossHT  decimal.Decimal
	GrossTTC decimal.Decimal
}

// PreviewOutput is a computed-but-not-persisted commission.
type PreviewOutput struct {
	Result      commission.Result
	MatchedRule *commission.Rule
}

// Service handles commission use cases: preview, recompute, manual
// clear, and rule-list editing.
type Service struct {
	tickets TicketRepository
	rules   RuleRepository
	clock   Clock
	logger  zerolog.Logger
}

// NewService constructs the service.
func NewService(tickets TicketRepository, rules RuleRepository, clock Clock, logger zerolog.Logger) (*Service, error) {
	if tickets == nil {
		return nil, errors.New("commission service: nil ticket repository")
	}
	if rules == nil {
		return nil, errors.New("commission service: nil rule repository")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Service{tickets: tickets, rules: rules, clock: clock, logger: logger}, nil
}

// Preview computes the commission a ticket with the given facts would
// get under the supplier's current rules. Nothing is persisted; this is
// the shared pure computation the UI calls before saving.
func (s *Service) Preview(ctx context.Context, supplierID string, input PreviewInput) (PreviewOutput, error) {
	if supplierID == "" {
		return PreviewOutput{}, commission.ErrEmptySupplierID
	}
	rules, err := s.rules.ListBySupplier(ctx, supplierID)
	if err != nil {
		return PreviewOutput{}, err
	}
	ticket := &commission.Ticket{
		SupplierID: supplierID,
		Attrs:      input.Attrs,
		GrossHT:    input.GrossHT,
		GrossTTC:   input.GrossTTC,
	}
	matched := commission.Match(input.Attrs, rules)
	result, err := commission.Compute(ticket, matched, s.clock.Now())
	if err != nil {
		return PreviewOutput{}, err
	}
	metrics.IncCommissionPreview()
	return PreviewOutput{Result: result, MatchedRule: matched}, nil
}

// Recompute re-derives the commission tuple of a ticket on explicit
// user request. It re-matches even a manually cleared ticket.
func (s *Service) Recompute(ctx context.Context, ticketID string) (commission.Result, error) {
	return s.recompute(ctx, ticketID, true)
}

// RecomputeAuto re-derives the commission tuple unless the ticket was
// manually cleared; the cleared state is terminal for automatic runs.
func (s *Service) RecomputeAuto(ctx context.Context, ticketID string) (commission.Result, error) {
	return s.recompute(ctx, ticketID, false)
}

func (s *Service) recompute(ctx context.Context, ticketID string, force bool) (commission.Result, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		metrics.IncCommissionRecompute(metrics.ResultError)
		return commission.Result{}, err
	}
	if ticket == nil {
		metrics.IncCommissionRecompute(metrics.ResultError)
		return commission.Result{}, commission.ErrTicketNotFound
	}
	if !force && ticket.Result != nil && ticket.Result.ManuallyCleared() {
		metrics.IncCommissionRecompute(metrics.ResultRejected)
		return *ticket.Result, nil
	}

	rules, err := s.rules.ListBySupplier(ctx, ticket.SupplierID)
	if err != nil {
		metrics.IncCommissionRecompute(metrics.ResultError)
		return commission.Result{}, err
	}
	matched := commission.Match(ticket.Attrs, rules)
	result, err := commission.Compute(ticket, matched, s.clock.Now())
	if err != nil {
		metrics.IncCommissionRecompute(metrics.ResultError)
		return commission.Result{}, err
	}

	ticket.SetResult(result)
	if err := s.tickets.Save(ctx, ticket); err != nil {
		metrics.IncCommissionRecompute(metrics.ResultError)
		return commission.Result{}, err
	}
	metrics.IncCommissionRecompute(metrics.ResultSuccess)
	s.logger.Info().
		Str("ticket_id", ticket.ID).
		Str("reason", result.Reason).
		Str("commission", result.Commission.String()).
		Msg("commission recomputed")
	return result, nil
}

// ClearCommission forces the no-commission state on a ticket. Terminal
// until the next explicit Recompute.
func (s *Service) ClearCommission(ctx context.Context, ticketID string) (commission.Result, error) {
	ticket, err := s.tickets.FindByID(ctx, ticketID)
	if err != nil {
		return commission.Result{}, err
	}
	if ticket == nil {
		return commission.Result{}, commission.ErrTicketNotFound
	}
	result, err := commission.ClearedResult(ticket, s.clock.Now())
	if err != nil {
		return commission.Result{}, err
	}
	ticket.SetResult(result)
	if err := s.tickets.Save(ctx, ticket); err != nil {
		return commission.Result{}, err
	}
	s.logger.Info().Str("ticket_id", ticket.ID).Msg("commission manually cleared")
	return result, nil
}

// RecomputeSupplierTickets refreshes every ticket of a supplier after a
// rule change. Manually cleared tickets are left alone. Idempotent:
// unchanged inputs produce identical tuples.
func (s *Service) RecomputeSupplierTickets(ctx context.Context, supplierID string) (int, error) {
	if supplierID == "" {
		return 0, commission.ErrEmptySupplierID
	}
	tickets, err := s.tickets.ListBySupplier(ctx, supplierID)
	if err != nil {
		return 0, err
	}
	recomputed := 0
	for _, t := range tickets {
		if t.Result != nil && t.Result.ManuallyCleared() {
			continue
		}
		if _, err := s.RecomputeAuto(ctx, t.ID); err != nil {
			return recomputed, err
		}
		recomputed++
	}
	return recomputed, nil
}

// ListRules returns the supplier's rules in stored order.
func (s *Service) ListRules(ctx context.Context, supplierID string) ([]commission.Rule, error) {
	if supplierID == "" {
		return nil, commission.ErrEmptySupplierID
	}
	return s.rules.ListBySupplier(ctx, supplierID)
}

// AddRule appends a rule to the supplier's list. A rule whose matching
// criteria duplicate an existing rule is rejected unless updateExisting
// is set, in which case the existing rule's value is replaced in place
// (order preserved).
func (s *Service) AddRule(ctx context.Context, rule commission.Rule, updateExisting bool) (commission.Rule, error) {
	return s.insertRule(ctx, rule, -1, updateExisting)
}

// InsertRuleAt inserts a rule at the given position, shifting later
// rules down. Position len(rules) appends.
func (s *Service) InsertRuleAt(ctx context.Context, rule commission.Rule, index int) (commission.Rule, error) {
	if index < 0 {
		return commission.Rule{}, commission.ErrRuleIndexOutOfRange
	}
	return s.insertRule(ctx, rule, index, false)
}

func (s *Service) insertRule(ctx context.Context, rule commission.Rule, index int, updateExisting bool) (commission.Rule, error) {
	if rule.SupplierID == "" {
		return commission.Rule{}, commission.ErrEmptySupplierID
	}
	if err := rule.Validate(); err != nil {
		return commission.Rule{}, err
	}
	existing, err := s.rules.ListBySupplier(ctx, rule.SupplierID)
	if err != nil {
		return commission.Rule{}, err
	}

	for i := range existing {
		if !existing[i].SameCriteria(rule) {
			continue
		}
		if !updateExisting {
			return commission.Rule{}, commission.ErrAmbiguousRuleEdit
		}
		rule.ID = existing[i].ID
		existing[i] = rule
		if err := s.rules.ReplaceAll(ctx, rule.SupplierID, existing); err != nil {
			return commission.Rule{}, err
		}
		s.logger.Info().Str("supplier_id", rule.SupplierID).Str("rule_id", rule.ID).Msg("commission rule updated")
		return rule, nil
	}

	if rule.ID == "" {
		rule.ID = "rule-" + uuid.NewString()
	}
	switch {
	case index > len(existing):
		return commission.Rule{}, commission.ErrRuleIndexOutOfRange
	case index < 0 || index == len(existing):
		existing = append(existing, rule)
	default:
		existing = append(existing[:index], append([]commission.Rule{rule}, existing[index:]...)...)
	}
	if err := s.rules.ReplaceAll(ctx, rule.SupplierID, existing); err != nil {
		return commission.Rule{}, err
	}
	s.logger.Info().Str("supplier_id", rule.SupplierID).Str("rule_id", rule.ID).Msg("commission rule added")
	return rule, nil
}

// RemoveRule deletes a rule from the supplier's list, preserving the
// order of the remaining rules.
func (s *Service) RemoveRule(ctx context.Context, supplierID, ruleID string) error {
	if supplierID == "" {
		return commission.ErrEmptySupplierID
	}
	existing, err := s.rules.ListBySupplier(ctx, supplierID)
	if err != nil {
		return err
	}
	kept := existing[:0]
	found := false
	for _, r := range existing {
		if r.ID == ruleID {
			found = true
			continue
		}
		kept = append(kept, r)
	}
	if !found {
		return commission.ErrRuleNotFound
	}
	return s.rules.ReplaceAll(ctx, supplierID, kept)
}

// UnreachableRules flags rules fully shadowed by an earlier rule.
func (s *Service) UnreachableRules(ctx context.Context, supplierID string) ([]commission.Rule, error) {
	rules, err := s.rules.ListBySupplier(ctx, supplierID)
	if err != nil {
		return nil, err
	}
	var shadowed []commission.Rule
	for _, idx := range commission.UnreachableRules(rules) {
		shadowed = append(shadowed, rules[idx])
	}
	return shadowed, nil
}
