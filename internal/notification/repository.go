package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/splitdraft/internal/database"
)

// Repository handles notification data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new notification repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts notifications in one transaction, filling in IDs and timestamps
func (r *Repository) CreateBatch(ctx context.Context, notifications []*Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO notifications (id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	now := time.UnixMilli(time.Now().UnixMilli())
	for _, n := range notifications {
		n.ID = uuid.NewString()
		n.CreatedAt = now
		if _, err := tx.ExecContext(ctx, query,
			n.ID,
			n.RecipientID,
			n.Message,
			n.IsRead,
			n.RelatedEntityType,
			n.RelatedEntityID,
			n.CreatedAt.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notifications: %w", err)
	}
	return nil
}

// GetByID retrieves a notification by its ID
func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	query := r.db.Rebind(`
		SELECT id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
		FROM notifications
		WHERE id = ?
	`)

	notification, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return notification, nil
}

// ListByRecipientID retrieves all notifications for a user, newest first
func (r *Repository) ListByRecipientID(ctx context.Context, recipientID string, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	filter := ` WHERE recipient_id = ?`
	args := []any{recipientID}
	if unreadOnly {
		filter += ` AND is_read = ?`
		args = append(args, false)
	}

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM notifications` + filter)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := r.db.Rebind(`
		SELECT id, recipient_id, message, is_read, related_entity_type, related_entity_id, created_at
		FROM notifications` + filter + `
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}

	return notifications, total, rows.Err()
}

// MarkAsRead marks a notification as read
func (r *Repository) MarkAsRead(ctx context.Context, id string) error {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, query, true, id); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllAsRead marks all notifications as read for a user
func (r *Repository) MarkAllAsRead(ctx context.Context, recipientID string) error {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE recipient_id = ? AND is_read = ?`)
	if _, err := r.db.ExecContext(ctx, query, true, recipientID, false); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

// GetUnreadCount returns the count of unread notifications for a user
func (r *Repository) GetUnreadCount(ctx context.Context, recipientID string) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND is_read = ?`)
	if err := r.db.QueryRowContext(ctx, query, recipientID, false).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		n         Notification
		createdAt int64
	)
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Message,
		&n.IsRead,
		&n.RelatedEntityType,
		&n.RelatedEntityID,
		&createdAt,
	); err != nil {
		return nil, err
	}
	n.CreatedAt = time.UnixMilli(createdAt)
	return &n, nil
}
