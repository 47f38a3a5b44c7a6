package split

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/money"
)

// =============================================================================
// PERCENTAGE SPLIT STRATEGY
// Starts everyone at 100/N percent; users then move the sliders
// =============================================================================

// PercentageStrategy seeds uniform percentages. Amounts follow
// total * percentage / 100 with largest-remainder correction so they still
// add up to the total.
type PercentageStrategy struct {
	currency money.Currency
}

// Mode returns the split mode identifier
func (s *PercentageStrategy) Mode() Mode {
	return ModePercentage
}

// Seed assigns 100/N percent to each participant
func (s *PercentageStrategy) Seed(totalUnits int64, participants []Participant) Lines {
	pct := evenPercentage(len(participants))

	weights := make([]decimal.Decimal, len(participants))
	for i := range weights {
		weights[i] = pct
	}
	shares := allocate(totalUnits, weights)

	lines := make(Lines, len(participants))
	for i, p := range participants {
		lines[i] = Line{
			UserID:     p.ID,
			Amount:     s.currency.FromMinor(shares[i]),
			Percentage: pct,
		}
	}
	return lines
}
