// Package money holds the currency rules used by the split engine.
//
// Amounts travel as decimal.Decimal in major units. Anything that has to be
// distributed exactly (even splits, rescaling) is converted to integer minor
// units first and converted back once the distribution is done.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned by Parse for anything that is not a
// non-negative decimal number.
var ErrInvalidAmount = errors.New("invalid amount")

// ErrAmountTooLarge is returned for amounts whose minor units exceed
// MaxMinorUnits.
var ErrAmountTooLarge = errors.New("amount too large")

// MaxMinorUnits bounds every amount in minor units. Sums of shares stay well
// inside int64.
const MaxMinorUnits int64 = math.MaxInt64 / 100

// maxInputLength bounds the raw text Parse will look at.
const maxInputLength = 32

// Tolerance is the absolute slack allowed when reconciling split totals.
var Tolerance = decimal.New(1, -2)

// Hundred is 100 as a decimal, used for percentage arithmetic.
var Hundred = decimal.NewFromInt(100)

// Currency describes how amounts are displayed and how fine the minor unit is.
type Currency struct {
	Code     string
	Symbol   string
	Exponent int32
}

// INR is the default currency of the expense form.
var INR = Currency{Code: "INR", Symbol: "₹", Exponent: 2}

// Lookup returns a known currency by ISO code, falling back to INR with the
// given symbol override when the code is unknown.
func Lookup(code, symbol string) Currency {
	c, ok := known[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		c = INR
	}
	if symbol != "" {
		c.Symbol = symbol
	}
	return c
}

var known = map[string]Currency{
	"INR": INR,
	"USD": {Code: "USD", Symbol: "$", Exponent: 2},
	"EUR": {Code: "EUR", Symbol: "€", Exponent: 2},
	"GBP": {Code: "GBP", Symbol: "£", Exponent: 2},
	"JPY": {Code: "JPY", Symbol: "¥", Exponent: 0},
}

// Unit returns the smallest representable amount, e.g. 0.01.
func (c Currency) Unit() decimal.Decimal {
	return decimal.New(1, -c.Exponent)
}

// ToMinor converts a major-unit amount to minor units, rounding half away
// from zero. Amounts beyond MaxMinorUnits return ErrAmountTooLarge.
func (c Currency) ToMinor(d decimal.Decimal) (int64, error) {
	scaled := d.Shift(c.Exponent)
	// digit count first so a huge exponent is never expanded by Round
	if scaled.NumDigits()+int(scaled.Exponent()) > 19 {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooLarge, c.Code)
	}
	units := scaled.Round(0)
	if units.Abs().GreaterThan(decimal.NewFromInt(MaxMinorUnits)) {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooLarge, c.Code)
	}
	return units.IntPart(), nil
}

// FromMinor converts minor units back to a major-unit amount.
func (c Currency) FromMinor(units int64) decimal.Decimal {
	return decimal.New(units, -c.Exponent)
}

// Round rounds to the currency's minor unit.
func (c Currency) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Exponent)
}

// Parse reads user input such as "12.50", "12,50", "₹ 1,200.00" or "INR 40".
//
// A lone comma is treated as the decimal separator; when both separators are
// present commas are grouping separators. Negative values, exponent notation
// and amounts beyond MaxMinorUnits are rejected.
func (c Currency) Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, c.Symbol)
	s = strings.TrimPrefix(strings.TrimSpace(s), c.Code)
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" || len(s) > maxInputLength || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}

	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	if _, err := c.ToMinor(d); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrInvalidAmount, err)
	}
	return d, nil
}

// ParseOrZero is Parse for interactive input: anything unreadable becomes 0.
func (c Currency) ParseOrZero(raw string) decimal.Decimal {
	d, err := c.Parse(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Format renders an amount with the currency symbol, e.g. "₹33.34".
func (c Currency) Format(d decimal.Decimal) string {
	return c.Symbol + d.StringFixed(c.Exponent)
}

// FormatPercent renders a percentage with one decimal, e.g. "33.3%".
func FormatPercent(d decimal.Decimal) string {
	return d.StringFixed(1) + "%"
}

// Within reports whether |a-b| < Tolerance.
func Within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Tolerance)
}

// Exceeds reports whether |a-b| > Tolerance.
func Exceeds(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().GreaterThan(Tolerance)
}
