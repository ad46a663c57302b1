package commission

import "github.com/shopspring/decimal"

// RuleMode selects how a rule's value is interpreted.
type RuleMode string

const (
	ModeFixed   RuleMode = "fixed"
	ModePercent RuleMode = "percent"
)

// RuleBase selects the amount a percentage applies to.
type RuleBase string

const (
	BaseHT  RuleBase = "HT"
	BaseTTC RuleBase = "TTC"
)

// Rule is one commission rule in a supplier's ordered rule list.
// Ordering is insertion order and first match wins; callers achieve
// specificity by placing narrower rules earlier.
type Rule struct {
	ID            string
	SupplierID    string
	Carrier       string
	PassengerType string
	FlightType    string
	CabinClass    string
	Mode          RuleMode
	Value         decimal.Decimal
	Base          RuleBase
}

// Validate rejects malformed rules.
func (r Rule) Validate() error {
	if r.Value.Sign() < 0 {
		return ErrNegativeRuleValue
	}
	switch r.Mode {
	case ModeFixed:
	case ModePercent:
		if r.Base != BaseHT && r.Base != BaseTTC {
			return ErrUnknownRuleBase
		}
	default:
		return ErrUnknownRuleMode
	}
	return nil
}

// TicketAttributes are the matching facts of a ticket.
type TicketAttributes struct {
	Carrier       string
	PassengerType string
	FlightType    string
	CabinClass    string
}

func (a TicketAttributes) normalized() [4]string {
	return [4]string{
		NormalizeCarrier(a.Carrier),
		NormalizePassengerType(a.PassengerType),
		NormalizeFlightType(a.FlightType),
		NormalizeCabinClass(a.CabinClass),
	}
}

func (r Rule) normalized() [4]string {
	return [4]string{
		NormalizeCarrier(r.Carrier),
		NormalizePassengerType(r.PassengerType),
		NormalizeFlightType(r.FlightType),
		NormalizeCabinClass(r.CabinClass),
	}
}

// Matches reports whether the rule applies to the ticket attributes:
// every field is either the wildcard or equal after normalization.
func (r Rule) Matches(attrs TicketAttributes) bool {
	rn := r.normalized()
	tn := attrs.normalized()
	for i := range rn {
		if rn[i] != All && rn[i] != tn[i] {
			return false
		}
	}
	return true
}

// SameCriteria reports whether two rules have identical normalized
// matching criteria, regardless of mode/value/base.
func (r Rule) SameCriteria(other Rule) bool {
	return r.normalized() == other.normalized()
}

// Shadows reports whether r, placed earlier, makes other unreachable:
// every field of r is the wildcard or equal to other's field.
func (r Rule) Shadows(other Rule) bool {
	rn := r.normalized()
	on := other.normalized()
	for i := range rn {
		if rn[i] != All && rn[i] != on[i] {
			return false
		}
	}
	return true
}

// Match returns the first rule in stored order that applies to the
// ticket attributes, or nil. Pure; safe to re-evaluate.
func Match(attrs TicketAttributes, rules []Rule) *Rule {
	for i := range rules {
		if rules[i].Matches(attrs) {
			return &rules[i]
		}
	}
	return nil
}

// UnreachableRules returns the indices of rules fully shadowed by an
// earlier rule in the list.
func UnreachableRules(rules []Rule) []int {
	var unreachable []int
	for i := 1; i < len(rules); i++ {
		for j := 0; j < i; j++ {
			if rules[j].Shadows(rules[i]) {
				unreachable = append(unreachable, i)
				break
			}
		}
	}
	return unreachable
}
