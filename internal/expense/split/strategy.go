package split

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/money"
)

// Mode defines how an expense is seeded across participants
type Mode string

const (
	ModeEqual      Mode = "EQUAL"
	ModePercentage Mode = "PERCENTAGE"
	ModeExact      Mode = "EXACT"
)

// Modes lists every supported mode in display order
var Modes = []Mode{ModeEqual, ModePercentage, ModeExact}

var (
	ErrUnknownMode        = errors.New("unknown split mode")
	ErrUnknownParticipant = errors.New("participant is not part of this split")
)

// ParseMode accepts the mode names case-insensitively. "EVEN" is kept as an
// alias of EQUAL for older clients.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EQUAL", "EVEN":
		return ModeEqual, nil
	case "PERCENTAGE", "PERCENT":
		return ModePercentage, nil
	case "EXACT":
		return ModeExact, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Participant is one person taking part in an expense. The engine only reads it.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url,omitempty"`
}

// Line is one participant's share of the expense
type Line struct {
	UserID     string          `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Paid       bool            `json:"paid"`
}

// Strategy seeds a fresh set of lines for one mode
type Strategy interface {
	// Seed computes one line per participant, in participant order.
	// totalUnits is the expense total in minor units.
	Seed(totalUnits int64, participants []Participant) Lines

	// Mode returns the mode this strategy implements
	Mode() Mode
}

// Factory creates strategies bound to a currency
type Factory struct {
	currency money.Currency
}

// NewFactory creates a new factory instance
func NewFactory(currency money.Currency) *Factory {
	return &Factory{currency: currency}
}

// Create returns the strategy for the given mode
func (f *Factory) Create(mode Mode) (Strategy, error) {
	switch mode {
	case ModeEqual:
		return &EqualStrategy{currency: f.currency}, nil
	case ModePercentage:
		return &PercentageStrategy{currency: f.currency}, nil
	case ModeExact:
		return &ExactStrategy{currency: f.currency}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// evenPercentage returns 100/n.
func evenPercentage(n int) decimal.Decimal {
	return money.Hundred.Div(decimal.NewFromInt(int64(n)))
}

// equalWeights returns n weights of 1.
func equalWeights(n int) []decimal.Decimal {
	w := make([]decimal.Decimal, n)
	for i := range w {
		w[i] = decimal.NewFromInt(1)
	}
	return w
}
