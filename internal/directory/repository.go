package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/splitdraft/internal/database"
)

// Repository handles user and group data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new directory repository with database dependency injected
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new user into the database
func (r *Repository) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	user := &User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		ImageURL:  req.ImageURL,
		CreatedAt: time.UnixMilli(time.Now().UnixMilli()),
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, name, email, image_url, created_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.ImageURL, user.CreatedAt.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID
func (r *Repository) GetUserByID(ctx context.Context, id string) (*User, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, image_url, created_at
		FROM users
		WHERE id = ?
	`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := r.db.Rebind(`
		SELECT id, name, email, image_url, created_at
		FROM users
		WHERE email = ?
	`)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUsersByIDs retrieves the users that exist among ids, keyed by ID
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*User, error) {
	users := make(map[string]*User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := r.db.Rebind(`
		SELECT id, name, email, image_url, created_at
		FROM users
		WHERE id IN (` + placeholders + `)
	`)

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	return users, rows.Err()
}

// CreateGroup inserts a group and its members in one transaction
func (r *Repository) CreateGroup(ctx context.Context, req *CreateGroupRequest, memberIDs []string) (*Group, error) {
	now := time.UnixMilli(time.Now().UnixMilli())
	group := &Group{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := r.db.Rebind(`INSERT INTO groups (id, name, description, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, query, group.ID, group.Name, group.Description, now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	memberQuery := r.db.Rebind(`INSERT INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)`)
	for i, userID := range memberIDs {
		// joined_at keeps the member order stable
		if _, err := tx.ExecContext(ctx, memberQuery, group.ID, userID, now.UnixMilli()+int64(i)); err != nil {
			return nil, fmt.Errorf("failed to add member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group: %w", err)
	}
	return group, nil
}

// GetGroupByID retrieves a group by its ID
func (r *Repository) GetGroupByID(ctx context.Context, id string) (*Group, error) {
	query := r.db.Rebind(`
		SELECT id, name, description, created_at
		FROM groups
		WHERE id = ?
	`)

	var (
		group     Group
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	group.CreatedAt = time.UnixMilli(createdAt)
	return &group, nil
}

// GetMembers retrieves all members of a group in the order they joined
func (r *Repository) GetMembers(ctx context.Context, groupID string) ([]*User, error) {
	query := r.db.Rebind(`
		SELECT u.id, u.name, u.email, u.image_url, u.created_at
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at, u.name
	`)

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	var members []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, user)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		user      User
		createdAt int64
	)
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.ImageURL,
		&createdAt,
	); err != nil {
		return nil, err
	}
	user.CreatedAt = time.UnixMilli(createdAt)
	return &user, nil
}
