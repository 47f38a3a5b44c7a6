package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrGroupNotFound     = errors.New("group not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
	ErrInvalidUser       = errors.New("name and email are required")
	ErrInvalidGroup      = errors.New("group name is required")
)

// Service handles user and group lookups
type Service struct {
	repo *Repository
}

// NewService creates a new directory service with repository dependency injected
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CreateUser creates a new user
func (s *Service) CreateUser(ctx context.Context, req *CreateUserRequest) (*User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" {
		return nil, ErrInvalidUser
	}

	// Check if email is already in use
	existing, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	return s.repo.CreateUser(ctx, req)
}

// GetUser retrieves a user by their ID
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// CreateGroup creates a group with the creator as its first member
func (s *Service) CreateGroup(ctx context.Context, creatorID string, req *CreateGroupRequest) (*Group, []split.Participant, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, nil, ErrInvalidGroup
	}

	memberIDs := []string{creatorID}
	seen := map[string]bool{creatorID: true}
	for _, id := range req.MemberIDs {
		if !seen[id] {
			seen[id] = true
			memberIDs = append(memberIDs, id)
		}
	}

	members, err := s.Participants(ctx, memberIDs)
	if err != nil {
		return nil, nil, err
	}

	group, err := s.repo.CreateGroup(ctx, req, memberIDs)
	if err != nil {
		return nil, nil, err
	}
	return group, members, nil
}

// GetGroup retrieves a group with its members
func (s *Service) GetGroup(ctx context.Context, id string) (*Group, []split.Participant, error) {
	group, err := s.repo.GetGroupByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if group == nil {
		return nil, nil, ErrGroupNotFound
	}

	members, err := s.GroupParticipants(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return group, members, nil
}

// Participants resolves user IDs to participants, preserving the given order.
// Any unknown ID fails the whole lookup.
func (s *Service) Participants(ctx context.Context, userIDs []string) ([]split.Participant, error) {
	users, err := s.repo.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	participants := make([]split.Participant, len(userIDs))
	for i, id := range userIDs {
		user, ok := users[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, id)
		}
		participants[i] = user.Participant()
	}
	return participants, nil
}

// GroupParticipants returns the members of a group as participants
func (s *Service) GroupParticipants(ctx context.Context, groupID string) ([]split.Participant, error) {
	group, err := s.repo.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, ErrGroupNotFound
	}

	members, err := s.repo.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	participants := make([]split.Participant, len(members))
	for i, m := range members {
		participants[i] = m.Participant()
	}
	return participants, nil
}
