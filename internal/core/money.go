// Package core provides the trade aggregation and formatting primitives.
//
// This file contains the US-dollar formatters used by tooltips and legend
// labels, and the percentage computation shared by both.
package core

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	hundred = decimal.NewFromInt(100)

	// compactUnits is ordered from the smallest to the largest magnitude.
	compactUnits = []struct {
		exp    int32
		suffix string
	}{
		{3, "K"},
		{6, "M"},
		{9, "B"},
		{12, "T"},
	}
)

// FormatCurrency formats v as US dollars with grouping and no fraction digits.
//
// Examples:
//
//	FormatCurrency(1234)    -> "$1,234"
//	FormatCurrency(1234.5)  -> "$1,235"
//	FormatCurrency(-42)     -> "-$42"
func FormatCurrency(v decimal.Decimal) string {
	rounded := v.Round(0)
	return dollars(rounded, formatNumber(rounded.Abs(), 0), "")
}

// FormatCurrencyCompact formats v as US dollars in compact notation with at
// most one fraction digit.
//
// Examples:
//
//	FormatCurrencyCompact(999)        -> "$999"
//	FormatCurrencyCompact(1234)       -> "$1.2K"
//	FormatCurrencyCompact(15300000)   -> "$15.3M"
//	FormatCurrencyCompact(999960)     -> "$1M"
func FormatCurrencyCompact(v decimal.Decimal) string {
	abs := v.Abs().Round(1)

	unit := -1
	for i, u := range compactUnits {
		if abs.Cmp(decimal.New(1, u.exp)) >= 0 {
			unit = i
		}
	}
	if unit < 0 {
		return dollars(v, formatNumber(abs, 1), "")
	}

	scaled := abs.Div(decimal.New(1, compactUnits[unit].exp)).Round(1)
	// Rounding may push the mantissa to the next unit (999.96K -> 1M).
	for scaled.Cmp(decimal.New(1000, 0)) >= 0 && unit < len(compactUnits)-1 {
		unit++
		scaled = abs.Div(decimal.New(1, compactUnits[unit].exp)).Round(1)
	}
	return dollars(v, formatNumber(scaled, 1), compactUnits[unit].suffix)
}

// Percentages returns round(values[i] / sum * 100) for every value.
// When the sum is zero every percentage is zero.
func Percentages(values []decimal.Decimal) []int {
	out := make([]int, len(values))
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	if total.IsZero() {
		return out
	}
	for i, v := range values {
		out[i] = int(v.Div(total).Mul(hundred).Round(0).IntPart())
	}
	return out
}

func dollars(sign decimal.Decimal, digits, suffix string) string {
	if sign.Sign() < 0 && digits != "0" {
		return "-$" + digits + suffix
	}
	return "$" + digits + suffix
}

// formatNumber renders a non-negative value with en-US grouping.
func formatNumber(v decimal.Decimal, maxFraction int) string {
	p := message.NewPrinter(language.AmericanEnglish)
	return p.Sprint(number.Decimal(v.InexactFloat64(), number.MaxFractionDigits(maxFraction)))
}
