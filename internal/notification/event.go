package notification

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedEvent is published for every accepted expense
type ExpenseCreatedEvent struct {
	ExpenseID    string    `json:"expense_id"`
	GroupID      string    `json:"group_id,omitempty"`
	PayerID      string    `json:"payer_id"`
	Description  string    `json:"description"`
	Amount       string    `json:"amount"`
	Currency     string    `json:"currency"`
	SplitType    string    `json:"split_type"`
	Participants []string  `json:"participants"`
	Timestamp    time.Time `json:"timestamp"`
}

// ToJSON converts the event to JSON bytes
func (e *ExpenseCreatedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ExpenseCreatedEventFromJSON decodes an event published by ToJSON
func ExpenseCreatedEventFromJSON(data []byte) (*ExpenseCreatedEvent, error) {
	var e ExpenseCreatedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
