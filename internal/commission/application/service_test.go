package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	commission "voyage-backoffice/internal/commission/domain"
	"voyage-backoffice/internal/commission/infrastructure/memory"
)

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newTestService(t *testing.T) (*Service, *memory.TicketRepository, *memory.RuleRepository) {
	t.Helper()
	tickets := memory.NewTicketRepository()
	rules := memory.NewRuleRepository()
	svc, err := NewService(tickets, rules, fixedClock{at: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, tickets, rules
}

func seedTicket(t *testing.T, tickets *memory.TicketRepository) *commission.Ticket {
	t.Helper()
	ticket := &commission.Ticket{
		ID:         "tkt-1",
		SupplierID: "sup-1",
		Attrs:      commission.TicketAttributes{Carrier: "AH", PassengerType: "ADT", FlightType: "domestic", CabinClass: "economy"},
		GrossHT:    decimal.NewFromInt(30000),
		GrossTTC:   decimal.NewFromInt(35000),
	}
	if err := tickets.Save(context.Background(), ticket); err != nil {
		t.Fatalf("seed ticket: %v", err)
	}
	return ticket
}

func TestRecomputeAppliesFirstMatchingRule(t *testing.T) {
	svc, tickets, rules := newTestService(t)
	seedTicket(t, tickets)
	ctx := context.Background()

	err := rules.ReplaceAll(ctx, "sup-1", []commission.Rule{
		{ID: "r1", SupplierID: "sup-1", Carrier: "AH", PassengerType: commission.All, FlightType: commission.All, CabinClass: commission.All, Mode: commission.ModeFixed, Value: decimal.NewFromInt(1000)},
		{ID: "r2", SupplierID: "sup-1", Carrier: commission.All, PassengerType: commission.All, FlightType: commission.All, CabinClass: commission.All, Mode: commission.ModeFixed, Value: decimal.NewFromInt(9999)},
	})
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	result, err := svc.Recompute(ctx, "tkt-1")
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if result.AppliedRuleID != "r1" {
		t.Fatalf("expected rule r1 applied, got %q", result.AppliedRuleID)
	}
	if !result.NetSupplierAmount.Equal(decimal.NewFromInt(34000)) {
		t.Fatalf("expected net 34000, got %s", result.NetSupplierAmount)
	}

	stored, err := tickets.FindByID(ctx, "tkt-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Result == nil || !stored.Result.Commission.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected persisted commission tuple, got %+v", stored.Result)
	}
}

func TestManualClearIsTerminalForAutoRecompute(t *testing.T) {
	svc, tickets, rules := newTestService(t)
	seedTicket(t, tickets)
	ctx := context.Background()

	err := rules.ReplaceAll(ctx, "sup-1", []commission.Rule{
		{ID: "r1", SupplierID: "sup-1", Mode: commission.ModeFixed, Value: decimal.NewFromInt(1000)},
	})
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	cleared, err := svc.ClearCommission(ctx, "tkt-1")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if !cleared.ManuallyCleared() || !cleared.Commission.IsZero() {
		t.Fatalf("unexpected cleared tuple: %+v", cleared)
	}

	auto, err := svc.RecomputeAuto(ctx, "tkt-1")
	if err != nil {
		t.Fatalf("auto recompute: %v", err)
	}
	if !auto.ManuallyCleared() {
		t.Fatal("expected auto recompute to preserve the cleared state")
	}

	forced, err := svc.Recompute(ctx, "tkt-1")
	if err != nil {
		t.Fatalf("forced recompute: %v", err)
	}
	if forced.ManuallyCleared() {
		t.Fatal("expected explicit recompute to exit the cleared state")
	}
	if !forced.Commission.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected commission 1000 after forced recompute, got %s", forced.Commission)
	}
}

func TestRecomputeSupplierTicketsSkipsCleared(t *testing.T) {
	svc, tickets, rules := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"tkt-1", "tkt-2"} {
		ticket := &commission.Ticket{
			ID:         id,
			SupplierID: "sup-1",
			Attrs:      commission.TicketAttributes{Carrier: "AH"},
			GrossHT:    decimal.NewFromInt(10000),
			GrossTTC:   decimal.NewFromInt(12000),
		}
		if err := tickets.Save(ctx, ticket); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	err := rules.ReplaceAll(ctx, "sup-1", []commission.Rule{
		{ID: "r1", SupplierID: "sup-1", Mode: commission.ModeFixed, Value: decimal.NewFromInt(500)},
	})
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}
	if _, err := svc.ClearCommission(ctx, "tkt-2"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	updated, err := svc.RecomputeSupplierTickets(ctx, "sup-1")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 ticket recomputed, got %d", updated)
	}

	cleared, err := tickets.FindByID(ctx, "tkt-2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if cleared.Result == nil || !cleared.Result.ManuallyCleared() {
		t.Fatalf("expected tkt-2 still cleared, got %+v", cleared.Result)
	}
}

func TestAddRuleRejectsDuplicateCriteria(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	rule := commission.Rule{
		SupplierID:    "sup-1",
		Carrier:       "AH",
		PassengerType: "ADT",
		FlightType:    "domestic",
		CabinClass:    "economy",
		Mode:          commission.ModeFixed,
		Value:         decimal.NewFromInt(1000),
	}
	if _, err := svc.AddRule(ctx, rule, false); err != nil {
		t.Fatalf("add: %v", err)
	}

	duplicate := rule
	duplicate.Value = decimal.NewFromInt(2000)
	if _, err := svc.AddRule(ctx, duplicate, false); !errors.Is(err, commission.ErrAmbiguousRuleEdit) {
		t.Fatalf("expected ErrAmbiguousRuleEdit, got %v", err)
	}

	updated, err := svc.AddRule(ctx, duplicate, true)
	if err != nil {
		t.Fatalf("update existing: %v", err)
	}
	listed, err := svc.ListRules(ctx, "sup-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected rule updated in place, got %d rules", len(listed))
	}
	if !listed[0].Value.Equal(decimal.NewFromInt(2000)) || listed[0].ID != updated.ID {
		t.Fatalf("unexpected updated rule: %+v", listed[0])
	}
}

func TestInsertRuleAtPreservesOrder(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	broad := commission.Rule{SupplierID: "sup-1", Mode: commission.ModeFixed, Value: decimal.NewFromInt(100)}
	if _, err := svc.AddRule(ctx, broad, false); err != nil {
		t.Fatalf("add broad: %v", err)
	}
	narrow := commission.Rule{
		SupplierID: "sup-1",
		Carrier:    "AH",
		Mode:       commission.ModeFixed,
		Value:      decimal.NewFromInt(500),
	}
	if _, err := svc.InsertRuleAt(ctx, narrow, 0); err != nil {
		t.Fatalf("insert at 0: %v", err)
	}

	listed, err := svc.ListRules(ctx, "sup-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Carrier != "AH" {
		t.Fatalf("expected narrow rule first, got %+v", listed)
	}

	if _, err := svc.InsertRuleAt(ctx, commission.Rule{SupplierID: "sup-1", Carrier: "TK", Mode: commission.ModeFixed, Value: decimal.NewFromInt(1)}, 5); !errors.Is(err, commission.ErrRuleIndexOutOfRange) {
		t.Fatalf("expected ErrRuleIndexOutOfRange, got %v", err)
	}
}

func TestUnreachableRulesService(t *testing.T) {
	svc, _, rules := newTestService(t)
	ctx := context.Background()

	err := rules.ReplaceAll(ctx, "sup-1", []commission.Rule{
		{ID: "broad", SupplierID: "sup-1", Carrier: "AH", Mode: commission.ModeFixed, Value: decimal.NewFromInt(100)},
		{ID: "narrow", SupplierID: "sup-1", Carrier: "AH", PassengerType: "ADT", Mode: commission.ModeFixed, Value: decimal.NewFromInt(200)},
	})
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	shadowed, err := svc.UnreachableRules(ctx, "sup-1")
	if err != nil {
		t.Fatalf("unreachable: %v", err)
	}
	if len(shadowed) != 1 || shadowed[0].ID != "narrow" {
		t.Fatalf("expected narrow flagged unreachable, got %+v", shadowed)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	svc, tickets, rules := newTestService(t)
	ctx := context.Background()

	err := rules.ReplaceAll(ctx, "sup-1", []commission.Rule{
		{ID: "r1", SupplierID: "sup-1", Mode: commission.ModePercent, Base: commission.BaseHT, Value: decimal.NewFromFloat(2.5)},
	})
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}

	out, err := svc.Preview(ctx, "sup-1", PreviewInput{
		Attrs:    commission.TicketAttributes{Carrier: "AH"},
		GrossHT:  decimal.NewFromInt(30000),
		GrossTTC: decimal.NewFromInt(35000),
	})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !out.Result.Commission.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected commission 750, got %s", out.Result.Commission)
	}
	if out.MatchedRule == nil || out.MatchedRule.ID != "r1" {
		t.Fatalf("expected matched rule r1, got %+v", out.MatchedRule)
	}

	listed, err := tickets.ListBySupplier(ctx, "sup-1")
	if err != nil {
		t.Fatalf("list tickets: %v", err)
	}
	if len(listed) != 0 {
		t.Fatalf("expected no persisted tickets after preview, got %d", len(listed))
	}
}
