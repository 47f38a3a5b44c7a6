// Package split computes and edits how an expense total is divided between
// participants.
//
// The engine is synchronous and keeps no state of its own: callers own the
// Lines and pass them back in for every edit.
package split

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/money"
)

// Engine seeds, edits and validates split lines for one currency
type Engine struct {
	factory  *Factory
	currency money.Currency
}

// NewEngine creates an engine that allocates in the currency's minor units
func NewEngine(currency money.Currency) *Engine {
	return &Engine{
		factory:  NewFactory(currency),
		currency: currency,
	}
}

// Currency returns the currency the engine allocates in
func (e *Engine) Currency() money.Currency {
	return e.currency
}

// Compute seeds a fresh line per participant for the given mode.
//
// A non-positive total or an empty participant list is not computable yet and
// yields no lines. A total beyond money.MaxMinorUnits is rejected with
// money.ErrAmountTooLarge. The payer's line is marked paid; an unknown payer
// leaves every line unpaid.
func (e *Engine) Compute(mode Mode, total decimal.Decimal, participants []Participant, payerID string) (Lines, error) {
	strategy, err := e.factory.Create(mode)
	if err != nil {
		return nil, err
	}

	if !total.IsPositive() || len(participants) == 0 {
		return Lines{}, nil
	}
	units, err := e.currency.ToMinor(total)
	if err != nil {
		return nil, err
	}
	if units <= 0 {
		return Lines{}, nil
	}

	lines := strategy.Seed(units, participants)
	lines.MarkPaid(payerID)
	return lines, nil
}

// SetPercentage edits one line by percentage. pct is clamped to [0,100] and
// the amount becomes total * pct / 100. No other line is touched.
func (e *Engine) SetPercentage(lines Lines, total decimal.Decimal, userID string, pct decimal.Decimal) error {
	i := lines.Index(userID)
	if i < 0 {
		return ErrUnknownParticipant
	}

	pct = clampPercentage(pct)
	lines[i].Percentage = pct
	lines[i].Amount = total.Mul(pct).Shift(-2)
	return nil
}

// SetExactAmount edits one line by amount. Unreadable or negative input counts
// as 0. The percentage follows amount / total * 100, or 0 when the total is
// not positive. No other line is touched.
func (e *Engine) SetExactAmount(lines Lines, total decimal.Decimal, userID string, raw string) error {
	i := lines.Index(userID)
	if i < 0 {
		return ErrUnknownParticipant
	}

	amount := e.currency.Round(e.currency.ParseOrZero(raw))
	lines[i].Amount = amount
	lines[i].Percentage = percentOf(amount, total)
	return nil
}

// Rescale rebuilds lines for a new total and participant list while keeping
// every existing percentage. Participants without a line start at 0%.
//
// When the percentages add up to 100 the amounts are distributed with the
// largest-remainder method so they sum to the total exactly; otherwise each
// amount is total * pct / 100 rounded to the minor unit.
func (e *Engine) Rescale(lines Lines, total decimal.Decimal, participants []Participant, payerID string) Lines {
	out := make(Lines, len(participants))
	weights := make([]decimal.Decimal, len(participants))
	for i, p := range participants {
		pct := decimal.Zero
		if j := lines.Index(p.ID); j >= 0 {
			pct = lines[j].Percentage
		}
		out[i] = Line{UserID: p.ID, Percentage: pct}
		weights[i] = pct
	}

	if !total.IsPositive() {
		out.MarkPaid(payerID)
		return out
	}

	units, err := e.currency.ToMinor(total)
	if err == nil && units > 0 && money.Within(out.TotalPercentage(), money.Hundred) {
		shares := allocate(units, weights)
		for i := range out {
			out[i].Amount = e.currency.FromMinor(shares[i])
		}
	} else {
		for i := range out {
			out[i].Amount = e.currency.Round(total.Mul(out[i].Percentage).Shift(-2))
		}
	}

	out.MarkPaid(payerID)
	return out
}

// ParsePercentage reads slider or text input such as "33.5" or "33.5%".
// Anything unreadable is 0; range clamping happens in SetPercentage.
func ParsePercentage(raw string) decimal.Decimal {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "%"))
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func clampPercentage(pct decimal.Decimal) decimal.Decimal {
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(money.Hundred) {
		return money.Hundred
	}
	return pct
}

func percentOf(amount, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return amount.Div(total).Mul(money.Hundred)
}
