package split

import "github.com/shopspring/decimal"

// Lines is an ordered set of split lines keyed by user ID
type Lines []Line

// Index returns the position of the user's line, or -1.
func (ls Lines) Index(userID string) int {
	for i, l := range ls {
		if l.UserID == userID {
			return i
		}
	}
	return -1
}

// TotalAmount sums every line's amount.
func (ls Lines) TotalAmount() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range ls {
		sum = sum.Add(l.Amount)
	}
	return sum
}

// TotalPercentage sums every line's percentage.
func (ls Lines) TotalPercentage() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range ls {
		sum = sum.Add(l.Percentage)
	}
	return sum
}

// Clone returns an independent copy.
func (ls Lines) Clone() Lines {
	if ls == nil {
		return nil
	}
	out := make(Lines, len(ls))
	copy(out, ls)
	return out
}

// MarkPaid sets Paid on the payer's line and clears it everywhere else.
func (ls Lines) MarkPaid(payerID string) {
	for i := range ls {
		ls[i].Paid = payerID != "" && ls[i].UserID == payerID
	}
}

// Matches reports whether the lines cover exactly the given participants.
func (ls Lines) Matches(participants []Participant) bool {
	if len(ls) != len(participants) {
		return false
	}
	seen := make(map[string]bool, len(ls))
	for _, l := range ls {
		seen[l.UserID] = true
	}
	if len(seen) != len(ls) {
		return false
	}
	for _, p := range participants {
		if !seen[p.ID] {
			return false
		}
	}
	return true
}
