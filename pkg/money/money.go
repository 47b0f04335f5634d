// Package money holds the decimal helpers shared by pricing and settlement.
// Amounts are currency units (not cents) and rates are plain percentages in [0, 100].
package money

import (
	"github.com/shopspring/decimal"
)

// DisplayPlaces is the precision used for every figure shown to the cashier.
const DisplayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Percent applies a percentage rate to an amount: amount × rate / 100.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || amount.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(rate).Div(hundred)
}

// Round rounds to display precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(DisplayPlaces)
}

// Format renders an amount with exactly two decimals.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(DisplayPlaces)
}

// ValidRate reports whether rate lies in [0, 100].
func ValidRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// FromFloat converts a float read from a JSON payload into a decimal.
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}
