package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Amounts are fixed-point decimals with two fractional digits end-to-end.
// Conversion to minor units happens only at the provider boundary.

var ErrInvalidAmount = errors.New("invalid money amount")

// Parse parses s as a non-negative amount with at most two decimal places.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() || d.Exponent() < -2 {
		return decimal.Zero, ErrInvalidAmount
	}

	return d.Round(2), nil
}

// Mul multiplies a unit price by a quantity, fixed to two decimal places.
func Mul(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// Sum adds amounts, fixed to two decimal places.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}

	return total.Round(2)
}

// ToCents converts an amount to minor units.
func ToCents(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).IntPart()
}

// FromCents converts minor units to an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).Round(2)
}

// String renders an amount with exactly two decimal places.
func String(d decimal.Decimal) string {
	return d.StringFixed(2)
}
