package expense

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// DefaultCategory is used when a draft is submitted without a category
const DefaultCategory = "Other"

// State tracks whether any line of a draft was edited by hand
type State string

const (
	// StateClean drafts are recomputed from scratch on every dependency change
	StateClean State = "CLEAN"
	// StateDirty drafts carry manual edits; dependency changes rescale instead
	StateDirty State = "DIRTY"
)

var (
	ErrEditNotAllowed       = errors.New("lines cannot be edited in this split mode")
	ErrDuplicateParticipant = errors.New("participant listed more than once")
	ErrNoParticipants       = errors.New("at least one participant is required")
)

// ValidationError collects the form-level problems that block a submission
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid expense: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

// Draft is one in-progress expense, owned by a single editing session.
//
// Changes to amount, participants, or payer recompute every line while the
// draft is Clean. Once a line has been edited by hand the draft is Dirty and
// the same changes rescale the existing percentages instead. Changing the mode
// or calling Reset returns to Clean with a fresh seed.
type Draft struct {
	ID           string
	OwnerID      string
	GroupID      string
	Description  string
	Amount       decimal.Decimal
	Category     string
	Date         time.Time
	PayerID      string
	Mode         split.Mode
	Participants []split.Participant
	Lines        split.Lines
	State        State
	CreatedAt    time.Time
	UpdatedAt    time.Time

	engine *split.Engine
}

// NewDraft starts an even split with the caller as the lone participant and payer
func NewDraft(engine *split.Engine, self split.Participant, now time.Time) *Draft {
	d := &Draft{
		ID:           uuid.NewString(),
		OwnerID:      self.ID,
		Category:     DefaultCategory,
		Date:         now,
		PayerID:      self.ID,
		Mode:         split.ModeEqual,
		Participants: []split.Participant{self},
		State:        StateClean,
		CreatedAt:    now,
		UpdatedAt:    now,
		engine:       engine,
	}
	d.recompute()
	return d
}

// SetAmount changes the expense total. An amount the currency cannot hold in
// minor units leaves the draft unchanged.
func (d *Draft) SetAmount(amount decimal.Decimal) error {
	if _, err := d.engine.Currency().ToMinor(amount); err != nil {
		return err
	}
	d.Amount = amount
	d.refresh()
	return nil
}

// SetParticipants replaces the participant list. IDs must be unique.
func (d *Draft) SetParticipants(participants []split.Participant) error {
	if len(participants) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p.ID == "" {
			return fmt.Errorf("%w: empty id", split.ErrUnknownParticipant)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParticipant, p.ID)
		}
		seen[p.ID] = true
	}

	d.Participants = append([]split.Participant(nil), participants...)
	d.refresh()
	return nil
}

// SetPayer changes who paid. A Dirty draft only has its paid flags refreshed.
func (d *Draft) SetPayer(payerID string) {
	d.PayerID = payerID
	if d.State == StateDirty {
		d.Lines.MarkPaid(payerID)
		return
	}
	d.recompute()
}

// SetMode switches the allocation mode, discarding any manual edits.
// Selecting the current mode again changes nothing.
func (d *Draft) SetMode(mode split.Mode) {
	if mode == d.Mode {
		return
	}
	d.Mode = mode
	d.Reset()
}

// Reset drops manual edits and reseeds the lines for the current mode.
func (d *Draft) Reset() {
	d.State = StateClean
	d.recompute()
}

// SetPercentage edits one line by percentage. Only allowed in percentage mode.
func (d *Draft) SetPercentage(userID string, pct decimal.Decimal) error {
	if d.Mode != split.ModePercentage {
		return fmt.Errorf("%w: %s", ErrEditNotAllowed, d.Mode)
	}
	if err := d.engine.SetPercentage(d.Lines, d.Amount, userID, pct); err != nil {
		return err
	}
	d.State = StateDirty
	return nil
}

// SetExactAmount edits one line by amount. Only allowed in exact mode.
func (d *Draft) SetExactAmount(userID, raw string) error {
	if d.Mode != split.ModeExact {
		return fmt.Errorf("%w: %s", ErrEditNotAllowed, d.Mode)
	}
	if err := d.engine.SetExactAmount(d.Lines, d.Amount, userID, raw); err != nil {
		return err
	}
	d.State = StateDirty
	return nil
}

// Status returns the continuous reconciliation flags.
func (d *Draft) Status() split.Status {
	return d.engine.Check(d.Lines, d.Amount)
}

// Warnings returns the messages to show next to the split editor.
func (d *Draft) Warnings() []string {
	return d.engine.Warnings(d.Mode, d.Status(), d.Amount)
}

// Participant returns the participant with the given ID.
func (d *Draft) Participant(id string) (split.Participant, bool) {
	for _, p := range d.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return split.Participant{}, false
}

// Finalize runs the submission checks and builds the payload handed to the
// store. The draft itself is left untouched so a rejected or failed
// submission can be corrected and retried.
func (d *Draft) Finalize() (*Payload, error) {
	verr := &ValidationError{}
	description := strings.TrimSpace(d.Description)
	if description == "" {
		verr.add("description", "Description is required")
	}
	if !d.Amount.IsPositive() {
		verr.add("amount", "Please enter a valid amount")
	}
	switch {
	case d.PayerID == "":
		verr.add("payer_id", "Please select who paid")
	case d.Lines.Index(d.PayerID) < 0:
		verr.add("payer_id", "Payer must be one of the participants")
	}
	if len(d.Participants) < 2 {
		verr.add("participants", "Please add at least one other participant")
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}
	if !d.Lines.Matches(d.Participants) {
		return nil, fmt.Errorf("%w: lines do not match participants", split.ErrUnreconciled)
	}

	lines, err := d.engine.Finalize(d.Lines, d.Amount, d.PayerID)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = DefaultCategory
	}

	payload := &Payload{
		Description: description,
		Amount:      d.Amount,
		Category:    category,
		Date:        d.Date.UnixMilli(),
		PayerID:     d.PayerID,
		GroupID:     d.GroupID,
		Mode:        d.Mode,
		Splits:      make([]PayloadSplit, len(lines)),
	}
	for i, l := range lines {
		payload.Splits[i] = PayloadSplit{UserID: l.UserID, Amount: l.Amount, Paid: l.Paid}
	}
	return payload, nil
}

// Clone returns a deep copy that shares only the engine.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Participants = append([]split.Participant(nil), d.Participants...)
	c.Lines = d.Lines.Clone()
	return &c
}

func (d *Draft) refresh() {
	if d.State == StateDirty {
		d.Lines = d.engine.Rescale(d.Lines, d.Amount, d.Participants, d.PayerID)
		return
	}
	d.recompute()
}

func (d *Draft) recompute() {
	lines, err := d.engine.Compute(d.Mode, d.Amount, d.Participants, d.PayerID)
	if err != nil {
		// mode and amount are validated before they reach the draft
		lines = split.Lines{}
	}
	d.Lines = lines
}
