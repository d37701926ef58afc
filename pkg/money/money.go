package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinorUnits converts a major-unit amount (e.g. 45.99 USD) to provider minor
// units (cents). The conversion rounds exactly once on the grand total so
// fractional-cent drift from per-item sums can never reach the provider.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// FromMinorUnits converts provider cents back into a major-unit decimal.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100))
}

// FixedMajor renders an amount as a fixed two-decimal string, the format
// PayPal's orders API requires for unit amounts and totals.
func FixedMajor(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// LineTotal multiplies a unit price by a quantity without float arithmetic.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// Positive reports whether the amount is strictly greater than zero.
func Positive(amount decimal.Decimal) bool {
	return amount.GreaterThan(decimal.Zero)
}

// ValidateMinimum enforces the provider's smallest chargeable amount in
// minor units (Stripe rejects intents under 50 cents).
func ValidateMinimum(cents, minimum int64) error {
	if cents < minimum {
		return fmt.Errorf("amount %d is below the %d minor-unit minimum", cents, minimum)
	}
	return nil
}
