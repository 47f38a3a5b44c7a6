package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/splitdraft/internal/database"
	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// Repository handles expense and split data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateExpense inserts the expense and all of its splits in one transaction
func (r *Repository) CreateExpense(ctx context.Context, payload *Payload) (*ExpenseWithSplits, error) {
	now := time.Now()
	expense := &Expense{
		ID:          uuid.NewString(),
		PayerID:     payload.PayerID,
		Description: payload.Description,
		Amount:      payload.Amount,
		Category:    payload.Category,
		Date:        time.UnixMilli(payload.Date),
		SplitType:   payload.Mode,
		CreatedAt:   time.UnixMilli(now.UnixMilli()),
	}
	if payload.GroupID != "" {
		groupID := payload.GroupID
		expense.GroupID = &groupID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`
		INSERT INTO expenses (id, group_id, payer_id, description, amount, category, date, split_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, query,
		expense.ID,
		expense.GroupID,
		expense.PayerID,
		expense.Description,
		expense.Amount,
		expense.Category,
		payload.Date,
		string(expense.SplitType),
		expense.CreatedAt.UnixMilli(),
	); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	splitQuery := r.db.Rebind(`
		INSERT INTO expense_splits (id, expense_id, user_id, amount, paid, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	splits := make([]*Split, len(payload.Splits))
	for i, ps := range payload.Splits {
		s := &Split{
			ID:        uuid.NewString(),
			ExpenseID: expense.ID,
			UserID:    ps.UserID,
			Amount:    ps.Amount,
			Paid:      ps.Paid,
		}
		if _, err := tx.ExecContext(ctx, splitQuery, s.ID, s.ExpenseID, s.UserID, s.Amount, s.Paid, i); err != nil {
			return nil, fmt.Errorf("failed to create split: %w", err)
		}
		splits[i] = s
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit expense: %w", err)
	}

	return &ExpenseWithSplits{Expense: expense, Splits: splits}, nil
}

// GetExpenseByID retrieves an expense by its ID
func (r *Repository) GetExpenseByID(ctx context.Context, id string) (*Expense, error) {
	query := r.db.Rebind(`
		SELECT e.id, e.group_id, e.payer_id, e.description, e.amount, e.category, e.date, e.split_type, e.created_at, u.name
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.id = ?
	`)

	expense, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// GetSplitsByExpenseID retrieves all splits for an expense in line order
func (r *Repository) GetSplitsByExpenseID(ctx context.Context, expenseID string) ([]*Split, error) {
	query := r.db.Rebind(`
		SELECT s.id, s.expense_id, s.user_id, s.amount, s.paid, u.name
		FROM expense_splits s
		JOIN users u ON s.user_id = u.id
		WHERE s.expense_id = ?
		ORDER BY s.position
	`)

	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []*Split
	for rows.Next() {
		s := &Split{}
		if err := rows.Scan(
			&s.ID,
			&s.ExpenseID,
			&s.UserID,
			&s.Amount,
			&s.Paid,
			&s.UserName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, s)
	}

	return splits, rows.Err()
}

// ListExpensesByUserID retrieves expenses the user paid for or has a split in
func (r *Repository) ListExpensesByUserID(ctx context.Context, userID string, limit, offset int) ([]*Expense, int, error) {
	var total int
	countQuery := r.db.Rebind(`
		SELECT COUNT(*) FROM expenses e
		WHERE e.payer_id = ? OR EXISTS (
			SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND s.user_id = ?
		)
	`)
	if err := r.db.QueryRowContext(ctx, countQuery, userID, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := r.db.Rebind(`
		SELECT e.id, e.group_id, e.payer_id, e.description, e.amount, e.category, e.date, e.split_type, e.created_at, u.name
		FROM expenses e
		JOIN users u ON e.payer_id = u.id
		WHERE e.payer_id = ? OR EXISTS (
			SELECT 1 FROM expense_splits s WHERE s.expense_id = e.id AND s.user_id = ?
		)
		ORDER BY e.date DESC, e.created_at DESC
		LIMIT ? OFFSET ?
	`)

	rows, err := r.db.QueryContext(ctx, query, userID, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*Expense, error) {
	var (
		expense   Expense
		groupID   sql.NullString
		splitType string
		date      int64
		createdAt int64
	)
	if err := row.Scan(
		&expense.ID,
		&groupID,
		&expense.PayerID,
		&expense.Description,
		&expense.Amount,
		&expense.Category,
		&date,
		&splitType,
		&createdAt,
		&expense.PayerName,
	); err != nil {
		return nil, err
	}

	if groupID.Valid {
		expense.GroupID = &groupID.String
	}
	expense.SplitType = split.Mode(splitType)
	expense.Date = time.UnixMilli(date)
	expense.CreatedAt = time.UnixMilli(createdAt)
	return &expense, nil
}
