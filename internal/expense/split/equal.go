package split

import "github.com/fkhayef/splitdraft/internal/money"

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides the expense equally among all participants
// =============================================================================

// EqualStrategy gives every participant the same share. Shares that do not
// divide evenly differ by at most one minor unit.
type EqualStrategy struct {
	currency money.Currency
}

// Mode returns the split mode identifier
func (s *EqualStrategy) Mode() Mode {
	return ModeEqual
}

// Seed splits totalUnits evenly; the leftover minor units go to the first
// participants in order.
func (s *EqualStrategy) Seed(totalUnits int64, participants []Participant) Lines {
	shares := allocate(totalUnits, equalWeights(len(participants)))
	pct := evenPercentage(len(participants))

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
