// Package price converts the wire's binary-float/string price
// representation into the engine's canonical fixed-point tick count, and
// back. Every comparison and arithmetic operation inside the book and the
// matcher operates on the int64 tick form; decimal.Decimal never crosses
// into that code, only at the admission/response boundary.
package price

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTickSize is one minor unit (e.g. one cent on a two-decimal
// instrument) when the caller does not configure a coarser tick.
var DefaultTickSize = decimal.New(1, -2)

// ToTicks parses a wire price (already decoded as a decimal-safe string or
// json.Number string by the caller) into a positive, finite tick count. It
// rejects non-positive and non-finite values.
func ToTicks(raw string, tickSize decimal.Decimal) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a valid decimal: %w", raw, err)
	}
	return FromDecimal(d, tickSize)
}

// FromFloat converts a binary float64 price (the wire's native JSON number
// form) into ticks by first routing it through decimal.Decimal, so the
// rounding behavior is the same regardless of whether the caller sent a
// float or a string. Repeated float64 round-tripping before reaching this
// function can itself introduce drift; callers should prefer
// FromDecimal/ToTicks with the original wire text when available.
func FromFloat(f float64, tickSize decimal.Decimal) (int64, error) {
	return FromDecimal(decimal.NewFromFloat(f), tickSize)
}

// FromDecimal rounds d to the nearest multiple of tickSize and returns the
// tick count as an int64.
func FromDecimal(d decimal.Decimal, tickSize decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("price must be positive, got %s", d.String())
	}
	if tickSize.IsZero() || tickSize.IsNegative() {
		return 0, fmt.Errorf("tick size must be positive, got %s", tickSize.String())
	}
	ticks := d.DivRound(tickSize, 0)
	if !ticks.IsPositive() {
		return 0, fmt.Errorf("price %s rounds to zero ticks at tick size %s", d.String(), tickSize.String())
	}
	return ticks.IntPart(), nil
}

// ToDecimal renders a tick count back to a decimal value, for HTTP
// responses and logging.
func ToDecimal(ticks int64, tickSize decimal.Decimal) decimal.Decimal {
	return decimal.New(ticks, 0).Mul(tickSize)
}
