package expense

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// Expense represents a submitted expense
type Expense struct {
	ID          string          `json:"id"`
	GroupID     *string         `json:"group_id,omitempty"`
	PayerID     string          `json:"payer_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`
	SplitType   split.Mode      `json:"split_type"` // EQUAL, PERCENTAGE, EXACT
	CreatedAt   time.Time       `json:"created_at"`

	// Populated via JOIN
	PayerName string `json:"payer_name,omitempty"`
}

// Split is one participant's persisted share of an expense
type Split struct {
	ID        string          `json:"id"`
	ExpenseID string          `json:"expense_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid"`

	// Populated via JOIN
	UserName string `json:"user_name,omitempty"`
}

// ExpenseWithSplits combines an expense with its splits
type ExpenseWithSplits struct {
	Expense *Expense
	Splits  []*Split
}

// Payload is the finalized draft handed to the store on submission
type Payload struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        int64           `json:"date"` // epoch millis
	PayerID     string          `json:"payerId"`
	GroupID     string          `json:"groupId,omitempty"`
	Mode        split.Mode      `json:"mode"`
	Splits      []PayloadSplit  `json:"splits"`
}

// PayloadSplit is one finalized line of a payload
type PayloadSplit struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

// Store persists submitted expenses
type Store interface {
	CreateExpense(ctx context.Context, payload *Payload) (*ExpenseWithSplits, error)
	GetExpenseByID(ctx context.Context, id string) (*Expense, error)
	GetSplitsByExpenseID(ctx context.Context, expenseID string) ([]*Split, error)
	ListExpensesByUserID(ctx context.Context, userID string, limit, offset int) ([]*Expense, int, error)
}

// Directory resolves participant IDs and groups to display data
type Directory interface {
	Participants(ctx context.Context, userIDs []string) ([]split.Participant, error)
	GroupParticipants(ctx context.Context, groupID string) ([]split.Participant, error)
}

// Notifier is told about every accepted expense
type Notifier interface {
	ExpenseCreated(ctx context.Context, expense *ExpenseWithSplits) error
}
