package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fkhayef/splitdraft/internal/expense"
	"github.com/fkhayef/splitdraft/internal/money"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Service handles notification business logic
type Service struct {
	repo      *Repository
	publisher Publisher
	currency  money.Currency
	logger    *slog.Logger
}

// NewService creates a new notification service. Amounts in messages and
// events are written in currency. A nil publisher drops events.
func NewService(repo *Repository, publisher Publisher, currency money.Currency) *Service {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{
		repo:      repo,
		publisher: publisher,
		currency:  currency,
		logger:    slog.Default().With("component", "notification"),
	}
}

// ExpenseCreated stores an "expense added" notification for every participant
// other than the payer and publishes an expense.created event. Both steps are
// attempted; their errors are joined.
func (s *Service) ExpenseCreated(ctx context.Context, created *expense.ExpenseWithSplits) error {
	e := created.Expense
	entityType := EntityExpense
	entityID := e.ID

	var notifications []*Notification
	participants := make([]string, len(created.Splits))
	for i, sp := range created.Splits {
		participants[i] = sp.UserID
		if sp.UserID == e.PayerID {
			continue
		}
		notifications = append(notifications, &Notification{
			RecipientID:       sp.UserID,
			Message:           s.expenseAddedMessage(e, sp),
			RelatedEntityType: &entityType,
			RelatedEntityID:   &entityID,
		})
	}

	var errs []error
	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		errs = append(errs, err)
	}

	event := &ExpenseCreatedEvent{
		ExpenseID:    e.ID,
		PayerID:      e.PayerID,
		Description:  e.Description,
		Amount:       e.Amount.StringFixed(s.currency.Exponent),
		Currency:     s.currency.Code,
		SplitType:    string(e.SplitType),
		Participants: participants,
		Timestamp:    time.Now().UTC(),
	}
	if e.GroupID != nil {
		event.GroupID = *e.GroupID
	}
	if err := s.publisher.PublishExpenseCreated(ctx, event); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		s.logger.Debug("participants notified", "expense_id", e.ID, "count", len(notifications))
	}
	return errors.Join(errs...)
}

// GetByID retrieves a notification by its ID
func (s *Service) GetByID(ctx context.Context, id string) (*Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotificationNotFound
	}
	return notification, nil
}

// ListByRecipientID retrieves all notifications for a user
func (s *Service) ListByRecipientID(ctx context.Context, recipientID string, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipientID(ctx, recipientID, perPage, offset, unreadOnly)
}

// GetForRecipient returns a notification only if userID is its recipient
func (s *Service) GetForRecipient(ctx context.Context, id, userID string) (*Notification, error) {
	notification, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification.RecipientID != userID {
		return nil, ErrNotRecipient
	}
	return notification, nil
}

// MarkAsRead marks one of userID's notifications as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID string) error {
	if _, err := s.GetForRecipient(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *Service) MarkAllAsRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// GetUnreadCount returns the count of unread notifications
func (s *Service) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.GetUnreadCount(ctx, userID)
}

func (s *Service) expenseAddedMessage(e *expense.Expense, sp *expense.Split) string {
	return fmt.Sprintf("New expense %q: your share is %s", e.Description, s.currency.Format(sp.Amount))
}
