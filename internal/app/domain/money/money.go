// Package money defines the monetary representation shared by balances,
// prices and deposits. Amounts are arbitrary-precision decimals with
// two-place semantics; binary floating point is never used for balance
// arithmetic.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal monetary value.
type Amount = decimal.Decimal

// Zero returns the zero amount.
func Zero() Amount { return decimal.Zero }

// Parse converts a decimal string such as "19.99" into an Amount. It rejects
// values that are not valid decimals, carry more than two fractional digits,
// or are negative.
func Parse(value string) (Amount, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("amount %q has more than two decimal places", value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative")
	}
	return d, nil
}

// MustParse is Parse for constants in tests and fixtures; it panics on error.
func MustParse(value string) Amount {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount with exactly two decimal places.
func Format(a Amount) string { return a.StringFixed(2) }
