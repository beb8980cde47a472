// Package money provides integer-cents arithmetic for order pricing.
// Every monetary value in the system is a count of sen; no component is
// allowed to do floating-point math on money.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Add sums two cent amounts.
func Add(a, b int) int {
	return a + b
}

// SubFloor subtracts b from a, saturating at zero. Grand totals and
// shipping fees are never negative.
func SubFloor(a, b int) int {
	if r := a - b; r > 0 {
		return r
	}
	return 0
}

// Percent returns pct percent of the amount, rounded half up to the
// nearest cent using integer arithmetic only.
func Percent(amountCents, pct int) int {
	if amountCents <= 0 || pct <= 0 {
		return 0
	}
	return (amountCents*pct + 50) / 100
}

// Format renders cents as a two-decimal amount string ("9800" -> "98.00").
// This is the textual amount format the payment gateway expects.
func Format(cents int) string {
	return decimal.New(int64(cents), -2).StringFixed(2)
}

// ParseAmount converts a gateway amount string back into cents. It accepts
// the strict two-decimal wire format plus comma thousands separators, and
// rejects anything that does not land exactly on a cent.
func ParseAmount(value string) (int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if trimmed == "" {
		return 0, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", value)
	}
	if cents.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", value)
	}
	return int(cents.IntPart()), nil
}
