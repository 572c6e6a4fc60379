// Package units converts free-form text to signed decimal scores and back.
//
// Parsing is best-effort: anything that does not yield a number becomes zero.
// Formatting always carries an explicit sign and two fractional digits.
package units

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the canonical display precision.
const Places = 2

var (
	// stripped keeps digits, minus signs and decimal points only.
	stripped = regexp.MustCompile(`[^0-9.\-]`)
	// leading matches the longest numeric prefix of the cleaned text.
	leading = regexp.MustCompile(`^-?(?:[0-9]+(?:\.[0-9]*)?|\.[0-9]+)`)
)

// Parse converts raw user input into a decimal. It never fails: input
// without a numeric prefix after cleaning yields exactly zero.
func Parse(input string) decimal.Decimal {
	cleaned := stripped.ReplaceAllString(input, "")
	match := leading.FindString(cleaned)
	if match == "" {
		return decimal.Zero
	}
	match = strings.TrimSuffix(match, ".")
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromNumber converts a number literal, exponent notation included. A
// literal outside the finite float64 range, or one that underflows to zero,
// yields exactly zero.
func FromNumber(literal string) decimal.Decimal {
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil || math.IsInf(f, 0) || f == 0 {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(literal)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders d with two fractional digits and an explicit sign:
// "+" for values >= 0, "-" for negative values. A negative value that
// rounds to zero keeps its minus sign.
func Format(d decimal.Decimal) string {
	s := d.StringFixed(Places)
	if d.Sign() >= 0 {
		return "+" + s
	}
	if !strings.HasPrefix(s, "-") {
		return "-" + s
	}
	return s
}

// IsNonnegative reports whether d >= 0. Zero is nonnegative.
func IsNonnegative(d decimal.Decimal) bool { return d.Sign() >= 0 }

// IsNegative reports whether d < 0 strictly.
func IsNegative(d decimal.Decimal) bool { return d.Sign() < 0 }

// Sum adds all values exactly.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
