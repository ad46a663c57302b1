package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestRoundCurrencyHalfUp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"34250.005", "34250.01"},
		{"34250.004", "34250"},
		{"749.995", "750"},
		{"100", "100"},
		{"-1.005", "-1.01"},
	}
	for _, tc := range cases {
		in, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.in, err)
		}
		want, err := decimal.NewFromString(tc.want)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.want, err)
		}
		if got := RoundCurrency(in, 2); !got.Equal(want) {
			t.Fatalf("round %s: expected %s, got %s", tc.in, want, got)
		}
	}
}

func TestValidatePositive(t *testing.T) {
	if err := ValidatePositive(decimal.NewFromInt(1)); err != nil {
		t.Fatalf("expected positive accepted, got %v", err)
	}
	if err := ValidatePositive(decimal.Zero); err != ErrInvalidAmount {
		t.Fatalf("expected zero rejected, got %v", err)
	}
	if err := ValidatePositive(decimal.NewFromInt(-5)); err != ErrInvalidAmount {
		t.Fatalf("expected negative rejected, got %v", err)
	}
}

func TestCoversWithEpsilon(t *testing.T) {
	eps := decimal.NewFromFloat(0.01)
	due := decimal.NewFromInt(100)

	if !CoversWithEpsilon(decimal.NewFromInt(100), due, eps) {
		t.Fatal("exact payment should cover")
	}
	if !CoversWithEpsilon(decimal.NewFromFloat(99.995), due, eps) {
		t.Fatal("payment within epsilon should cover")
	}
	if CoversWithEpsilon(decimal.NewFromFloat(99.98), due, eps) {
		t.Fatal("payment beyond epsilon should not cover")
	}
}

func TestClampZeroAndMin(t *testing.T) {
	if got := ClampZero(decimal.NewFromInt(-3)); !got.IsZero() {
		t.Fatalf("expected clamp to zero, got %s", got)
	}
	if got := ClampZero(decimal.NewFromInt(7)); !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("expected positive unchanged, got %s", got)
	}
	if got := Min(decimal.NewFromInt(3), decimal.NewFromInt(5)); !got.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected min 3, got %s", got)
	}
}
