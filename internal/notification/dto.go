package notification

// NotificationResponse is one entry of the caller's inbox
type NotificationResponse struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Read      bool   `json:"read"`
	ExpenseID string `json:"expense_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// UnreadCountResponse carries the inbox badge count
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// ToResponse converts a Notification to its API shape. Only expense links are
// exposed.
func (n *Notification) ToResponse() *NotificationResponse {
	resp := &NotificationResponse{
		ID:        n.ID,
		Message:   n.Message,
		Read:      n.IsRead,
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if n.RelatedEntityType != nil && *n.RelatedEntityType == EntityExpense && n.RelatedEntityID != nil {
		resp.ExpenseID = *n.RelatedEntityID
	}
	return resp
}
