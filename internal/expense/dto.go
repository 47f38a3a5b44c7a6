package expense

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
)

// RawInput is a form value that may arrive as a JSON string or number.
// It is kept as text so the engine can apply its own lenient parsing.
type RawInput string

// UnmarshalJSON accepts "12,50", "12.5" or 12.5
func (r *RawInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = RawInput(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = RawInput(n.String())
	return nil
}

// DraftFields are the form fields that can be set when starting or updating a draft
type DraftFields struct {
	Description *string   `json:"description,omitempty"`
	Amount      *RawInput `json:"amount,omitempty" swaggertype:"string"`
	Category    *string   `json:"category,omitempty"`
	Date        *int64    `json:"date,omitempty"` // epoch millis
	PayerID     *string   `json:"payer_id,omitempty"`
	Mode        *string   `json:"mode,omitempty" enums:"EQUAL,PERCENTAGE,EXACT"`
}

// StartDraftRequest represents the request to open a new draft
type StartDraftRequest struct {
	GroupID        string   `json:"group_id,omitempty"`
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	DraftFields
}

// UpdateDraftRequest represents a partial update of a draft.
// A non-nil ParticipantIDs replaces the whole participant list.
type UpdateDraftRequest struct {
	ParticipantIDs []string `json:"participant_ids,omitempty"`
	DraftFields
}

// SetLineRequest carries a single percentage or amount edit
type SetLineRequest struct {
	Value RawInput `json:"value" swaggertype:"string"`
}

// PreviewRequest asks for a one-off split computation
type PreviewRequest struct {
	Mode           string   `json:"mode" enums:"EQUAL,PERCENTAGE,EXACT"`
	Amount         RawInput `json:"amount" swaggertype:"string"`
	ParticipantIDs []string `json:"participant_ids"`
	PayerID        string   `json:"payer_id,omitempty"`
}

// LineResponse represents one split line of a draft
type LineResponse struct {
	UserID            string          `json:"user_id"`
	Name              string          `json:"name,omitempty"`
	ImageURL          string          `json:"image_url,omitempty"`
	Self              bool            `json:"self"`
	Amount            decimal.Decimal `json:"amount" swaggertype:"string"`
	Percentage        decimal.Decimal `json:"percentage" swaggertype:"string"`
	Paid              bool            `json:"paid"`
	AmountDisplay     string          `json:"amount_display"`
	PercentageDisplay string          `json:"percentage_display"`
}

// StatusResponse mirrors split.Status with display totals
type StatusResponse struct {
	AmountTotal     string `json:"amount_total"`
	PercentageTotal string `json:"percentage_total"`
	AmountOK        bool   `json:"amount_ok"`
	PercentageOK    bool   `json:"percentage_ok"`
}

// DraftResponse represents the response for a draft
type DraftResponse struct {
	ID            string              `json:"id"`
	GroupID       string              `json:"group_id,omitempty"`
	Description   string              `json:"description"`
	Amount        decimal.Decimal     `json:"amount" swaggertype:"string"`
	AmountDisplay string              `json:"amount_display"`
	Category      string              `json:"category"`
	Date          int64               `json:"date"`
	PayerID       string              `json:"payer_id"`
	Mode          split.Mode          `json:"mode"`
	State         State               `json:"state"`
	Participants  []split.Participant `json:"participants"`
	Lines         []*LineResponse     `json:"lines"`
	Status        StatusResponse      `json:"status"`
	Warnings      []string            `json:"warnings"`
	UpdatedAt     string              `json:"updated_at"`
}

// PreviewResponse represents a one-off split computation
type PreviewResponse struct {
	Mode     split.Mode      `json:"mode"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	Lines    []*LineResponse `json:"lines"`
	Status   split.Status    `json:"status"`
	Warnings []string        `json:"warnings"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID          string           `json:"id"`
	GroupID     *string          `json:"group_id,omitempty"`
	PayerID     string           `json:"payer_id"`
	PayerName   string           `json:"payer_name,omitempty"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount" swaggertype:"string"`
	Category    string           `json:"category"`
	Date        int64            `json:"date"`
	SplitType   split.Mode       `json:"split_type"`
	CreatedAt   string           `json:"created_at"`
	Splits      []*SplitResponse `json:"splits,omitempty"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	UserName string          `json:"user_name,omitempty"`
	Amount   decimal.Decimal `json:"amount" swaggertype:"string"`
	Paid     bool            `json:"paid"`
}

// ToResponse converts a Draft to a DraftResponse for the given viewer
func (d *Draft) ToResponse(viewerID string) *DraftResponse {
	currency := d.engine.Currency()
	status := d.Status()
	warnings := d.Warnings()
	if warnings == nil {
		warnings = []string{}
	}

	return &DraftResponse{
		ID:            d.ID,
		GroupID:       d.GroupID,
		Description:   d.Description,
		Amount:        d.Amount,
		AmountDisplay: currency.Format(d.Amount),
		Category:      d.Category,
		Date:          d.Date.UnixMilli(),
		PayerID:       d.PayerID,
		Mode:          d.Mode,
		State:         d.State,
		Participants:  d.Participants,
		Lines:         toLineResponses(d.engine, d.Lines, viewerID, d.Participants),
		Status: StatusResponse{
			AmountTotal:     currency.Format(status.AmountTotal),
			PercentageTotal: money.FormatPercent(status.PercentageTotal),
			AmountOK:        status.AmountOK,
			PercentageOK:    status.PercentageOK,
		},
		Warnings:  warnings,
		UpdatedAt: d.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	return &ExpenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		PayerName:   e.PayerName,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		Date:        e.Date.UnixMilli(),
		SplitType:   e.SplitType,
		CreatedAt:   e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Split model to a SplitResponse DTO
func (s *Split) ToResponse() *SplitResponse {
	return &SplitResponse{
		ID:       s.ID,
		UserID:   s.UserID,
		UserName: s.UserName,
		Amount:   s.Amount,
		Paid:     s.Paid,
	}
}

func (ews *ExpenseWithSplits) toResponse() *ExpenseResponse {
	resp := ews.Expense.ToResponse()
	resp.Splits = make([]*SplitResponse, len(ews.Splits))
	for i, s := range ews.Splits {
		resp.Splits[i] = s.ToResponse()
	}
	return resp
}

func toLineResponses(engine *split.Engine, lines split.Lines, viewerID string, participants []split.Participant) []*LineResponse {
	currency := engine.Currency()
	byID := make(map[string]split.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	out := make([]*LineResponse, len(lines))
	for i, l := range lines {
		p := byID[l.UserID]
		out[i] = &LineResponse{
			UserID:            l.UserID,
			Name:              p.Name,
			ImageURL:          p.ImageURL,
			Self:              viewerID != "" && l.UserID == viewerID,
			Amount:            l.Amount,
			Percentage:        l.Percentage,
			Paid:              l.Paid,
			AmountDisplay:     currency.Format(l.Amount),
			PercentageDisplay: money.FormatPercent(l.Percentage),
		}
	}
	return out
}
