package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compute applies a matched rule to a ticket and returns the commission
// tuple. A nil rule is the no-rule fallback: zero commission, net equal
// to the gross TTC. The commission is always subtracted from the TTC
// amount, whatever base it was computed on. No rounding happens here.
func Compute(ticket *Ticket, rule *Rule, now time.Time) (Result, error) {
	if ticket == nil {
		return Result{}, ErrNilTicket
	}
	if rule == nil {
		return Result{
			Commission:        decimal.Zero,
			NetSupplierAmount: ticket.GrossTTC,
			Reason:            ReasonNoRule,
			ComputedAt:        now,
		}, nil
	}
	if err := rule.Validate(); err != nil {
		return Result{}, err
	}

	var amount decimal.Decimal
	switch rule.Mode {
	case ModeFixed:
		amount = rule.Value
	case ModePercent:
		base := ticket.GrossTTC
		if rule.Base == BaseHT {
			base = ticket.GrossHT
		}
		amount = base.Mul(rule.Value).Div(hundred)
	}

	return Result{
		Commission:        amount,
		NetSupplierAmount: ticket.GrossTTC.Sub(amount),
		AppliedRuleID:     rule.ID,
		Reason:            ReasonRuleApplied,
		ComputedAt:        now,
	}, nil
}

// ClearedResult builds the terminal manually-cleared tuple: no
// commission, net equal to gross TTC.
func ClearedResult(ticket *Ticket, now time.Time) (Result, error) {
	if ticket == nil {
		return Result{}, ErrNilTicket
	}
	return Result{
		Commission:        decimal.Zero,
		NetSupplierAmount: ticket.GrossTTC,
		Reason:            ReasonManuallyCleared,
		ComputedAt:        now,
	}, nil
}
