package split

import "github.com/fkhayef/splitdraft/internal/money"

// =============================================================================
// EXACT SPLIT STRATEGY
// Each participant owes a specific amount typed in by the user
// =============================================================================

// ExactStrategy only provides a starting point: the even split, with each
// percentage derived from its amount. Users overwrite the amounts afterwards.
type ExactStrategy struct {
	currency money.Currency
}

// Mode returns the split mode identifier
func (s *ExactStrategy) Mode() Mode {
	return ModeExact
}

// Seed reuses the equal allocation and derives percentages from the amounts
func (s *ExactStrategy) Seed(totalUnits int64, participants []Participant) Lines {
	lines := (&EqualStrategy{currency: s.currency}).Seed(totalUnits, participants)
	total := s.currency.FromMinor(totalUnits)
	for i := range lines {
		lines[i].Percentage = percentOf(lines[i].Amount, total)
	}
	return lines
}
