package notification

import "time"

// Notification represents a notification in the system
type Notification struct {
	ID                string    `json:"id"`
	RecipientID       string    `json:"recipient_id"`
	Message           string    `json:"message"`
	IsRead            bool      `json:"is_read"`
	RelatedEntityType *string   `json:"related_entity_type,omitempty"` // e.g., "EXPENSE"
	RelatedEntityID   *string   `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeExpenseAdded NotificationType = "EXPENSE_ADDED"
)

// EntityExpense marks notifications that point at an expense
const EntityExpense = "EXPENSE"
