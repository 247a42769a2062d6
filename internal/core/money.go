// Package core holds the twelve-month budget model.
//
// This file contains the currency formatting used by chart tooltips,
// the CLI and the HTML views.
package core

import (
	"math"

	"github.com/dustin/go-humanize"
)

// CurrencySymbol prefixes every formatted amount.
const CurrencySymbol = "$"

// FormatCurrency formats a value with thousands separators and two decimals.
//
// Examples:
//
//	FormatCurrency(1234.5) -> "$1,234.50"
//	FormatCurrency(-12)    -> "-$12.00"
//	FormatCurrency(0)      -> "$0.00"
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	// round half away from zero on cents before formatting
	cents := math.Round(v * 100)
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := CurrencySymbol + humanize.FormatFloat("#,###.##", cents/100)
	if neg {
		return "-" + s
	}
	return s
}
