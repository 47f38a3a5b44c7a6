package split

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/money"
)

// ErrUnreconciled rejects a submission whose amounts do not add up to the total
var ErrUnreconciled = errors.New("split amounts don't add up to the total")

// Status is the continuous, non-blocking view of a split's consistency
type Status struct {
	AmountTotal     decimal.Decimal `json:"amount_total"`
	PercentageTotal decimal.Decimal `json:"percentage_total"`
	AmountOK        bool            `json:"amount_ok"`
	PercentageOK    bool            `json:"percentage_ok"`
}

// Check recomputes both totals. PercentageOK only matters in percentage mode.
func (e *Engine) Check(lines Lines, total decimal.Decimal) Status {
	amountTotal := lines.TotalAmount()
	pctTotal := lines.TotalPercentage()
	return Status{
		AmountTotal:     amountTotal,
		PercentageTotal: pctTotal,
		AmountOK:        money.Within(amountTotal, total),
		PercentageOK:    money.Within(pctTotal, money.Hundred),
	}
}

// Warnings turns a status into the messages shown under the split editor
func (e *Engine) Warnings(mode Mode, status Status, total decimal.Decimal) []string {
	var warnings []string
	if mode == ModePercentage && !status.PercentageOK {
		warnings = append(warnings, "Percentages must add up to 100%.")
	}
	if mode == ModeExact && !status.AmountOK {
		warnings = append(warnings, fmt.Sprintf(
			"The split sum (%s) must equal the total (%s).",
			e.currency.Format(status.AmountTotal),
			e.currency.Format(total),
		))
	}
	return warnings
}

// Finalize is the submission gate. It compares the sum of the lines as
// edited against the total and rejects the set with ErrUnreconciled when they
// differ by more than the tolerance. Accepted amounts are then brought to the
// minor unit with largest-remainder allocation, so the returned lines sum to
// the total exactly, and the paid flags are recomputed from payerID. The input
// lines are never modified.
func (e *Engine) Finalize(lines Lines, total decimal.Decimal, payerID string) (Lines, error) {
	sum := lines.TotalAmount()
	if money.Exceeds(sum, total) {
		return nil, fmt.Errorf("%w: %s of %s",
			ErrUnreconciled,
			e.currency.Format(sum),
			e.currency.Format(total),
		)
	}

	final := lines.Clone()
	weights := make([]decimal.Decimal, len(final))
	for i, l := range final {
		weights[i] = l.Amount
	}
	totalUnits, err := e.currency.ToMinor(total)
	if err != nil {
		return nil, err
	}
	units := allocate(totalUnits, weights)
	for i := range final {
		final[i].Amount = e.currency.FromMinor(units[i])
	}
	final.MarkPaid(payerID)
	return final, nil
}
