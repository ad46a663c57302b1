package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount is zero or negative.
var ErrInvalidAmount = errors.New("money: amount must be positive")

// ValidatePositive rejects zero and negative amounts.
func ValidatePositive(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// RoundCurrency rounds half-up at the given minor-unit precision.
// This is the single rounding point of the system: commission and
// settlement arithmetic stays unrounded until invoice-total aggregation
// or display.
func RoundCurrency(amount decimal.Decimal, precision int32) decimal.Decimal {
	return amount.Round(precision)
}

// WithinEpsilon reports whether a and b differ by at most eps.
func WithinEpsilon(a, b, eps decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(eps) <= 0
}

// CoversWithEpsilon reports whether paid covers due, allowing eps of slack.
func CoversWithEpsilon(paid, due, eps decimal.Decimal) bool {
	return paid.Cmp(due.Sub(eps)) >= 0
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// ClampZero returns v, or zero when v is negative.
func ClampZero(v decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return decimal.Zero
	}
	return v
}
