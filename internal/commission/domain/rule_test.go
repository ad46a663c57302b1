package commission

import (
	"testing"

	"github.com/shopspring/decimal"
)

func fixedRule(id string, value int64, carrier, pax, flight, cabin string) Rule {
	return Rule{
		ID:            id,
		SupplierID:    "sup-1",
		Carrier:       carrier,
		PassengerType: pax,
		FlightType:    flight,
		CabinClass:    cabin,
		Mode:          ModeFixed,
		Value:         decimal.NewFromInt(value),
	}
}

func TestMatchFirstWins(t *testing.T) {
	rules := []Rule{
		fixedRule("r1", 500, "AH", "ADT", FlightDomestic, "economy"),
		fixedRule("r2", 900, "AH", All, All, All),
	}
	attrs := TicketAttributes{Carrier: "AH", PassengerType: "ADT", FlightType: "domestic", CabinClass: "Y"}

	matched := Match(attrs, rules)
	if matched == nil {
		t.Fatal("expected a match")
	}
	if matched.ID != "r1" {
		t.Fatalf("expected first matching rule r1, got %s", matched.ID)
	}
}

func TestMatchWildcardRule(t *testing.T) {
	rules := []Rule{fixedRule("r1", 300, All, All, All, All)}
	attrs := TicketAttributes{Carrier: "TK", PassengerType: "CHD", FlightType: "foreign", CabinClass: "business"}

	matched := Match(attrs, rules)
	if matched == nil || matched.ID != "r1" {
		t.Fatalf("expected all-wildcard rule to match, got %v", matched)
	}
}

func TestMatchNormalizesBeforeComparing(t *testing.T) {
	rules := []Rule{fixedRule("r1", 200, "ah", "Adulte", "international", "affaires")}
	attrs := TicketAttributes{Carrier: " AH ", PassengerType: "ADT", FlightType: FlightFromCountry, CabinClass: "C"}

	if Match(attrs, rules) == nil {
		t.Fatal("expected normalized attributes to match rule aliases")
	}
}

func TestMatchNoRule(t *testing.T) {
	rules := []Rule{fixedRule("r1", 100, "AH", All, All, All)}
	attrs := TicketAttributes{Carrier: "TK", PassengerType: "ADT", FlightType: "domestic", CabinClass: "economy"}

	if matched := Match(attrs, rules); matched != nil {
		t.Fatalf("expected no match, got %s", matched.ID)
	}
}

func TestMatchDeterministic(t *testing.T) {
	rules := []Rule{
		fixedRule("r1", 100, All, "ADT", All, All),
		fixedRule("r2", 200, "AH", All, All, All),
	}
	attrs := TicketAttributes{Carrier: "AH", PassengerType: "ADT", FlightType: "domestic", CabinClass: "economy"}

	first := Match(attrs, rules)
	for i := 0; i < 10; i++ {
		again := Match(attrs, rules)
		if again == nil || again.ID != first.ID {
			t.Fatalf("expected stable match %s, got %v", first.ID, again)
		}
	}
}

func TestUnreachableRules(t *testing.T) {
	rules := []Rule{
		fixedRule("broad", 100, "AH", All, All, All),
		fixedRule("narrow", 200, "AH", "ADT", FlightDomestic, "economy"),
		fixedRule("other", 300, "TK", All, All, All),
	}
	unreachable := UnreachableRules(rules)
	if len(unreachable) != 1 || unreachable[0] != 1 {
		t.Fatalf("expected only index 1 shadowed, got %v", unreachable)
	}
}

func TestRuleValidate(t *testing.T) {
	bad := Rule{Mode: ModePercent, Value: decimal.NewFromInt(5)}
	if err := bad.Validate(); err != ErrUnknownRuleBase {
		t.Fatalf("expected ErrUnknownRuleBase, got %v", err)
	}
	neg := Rule{Mode: ModeFixed, Value: decimal.NewFromInt(-1)}
	if err := neg.Validate(); err != ErrNegativeRuleValue {
		t.Fatalf("expected ErrNegativeRuleValue, got %v", err)
	}
	ok := Rule{Mode: ModePercent, Base: BaseHT, Value: decimal.NewFromFloat(2.5)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid rule, got %v", err)
	}
}
