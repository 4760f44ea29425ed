// Package money provides 2-decimal currency arithmetic used across the
// pricing core. Every intermediate pipeline value is rounded through Round so
// computed totals match what the display layer renders.
package money

import "github.com/shopspring/decimal"

// Places is the currency precision used for all monetary values.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round normalises a monetary value to currency precision (half-up).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns pct percent of base, rounded to currency precision.
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(pct).Div(hundred))
}

// Ratio expresses part as a percentage of whole, rounded to two decimals.
// A zero whole yields zero rather than dividing.
func Ratio(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(Places)
}

// FromFloat converts a float input (request DTO values) into a rounded amount.
func FromFloat(f float64) decimal.Decimal {
	return Round(decimal.NewFromFloat(f))
}

// Clamp bounds v to the [min, max] interval.
func Clamp(v, min, max decimal.Decimal) decimal.Decimal {
	if v.LessThan(min) {
		return min
	}
	if v.GreaterThan(max) {
		return max
	}
	return v
}
