package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fkhayef/splitdraft/internal/expense/split"
)

// Common errors
var (
	ErrExpenseNotFound = errors.New("expense not found")
	ErrDraftNotFound   = errors.New("draft not found")
	ErrNotDraftOwner   = errors.New("only the owner can edit this draft")
	ErrNotGroupMember  = errors.New("you are not a member of this group")
	ErrPersistence     = errors.New("failed to save expense")
)

// Submission results reported to the Recorder
const (
	ResultAccepted         = "accepted"
	ResultUnreconciled     = "unreconciled"
	ResultInvalid          = "invalid"
	ResultPersistenceError = "persistence_error"
)

// Recorder receives draft lifecycle events for metrics
type Recorder interface {
	DraftStarted()
	Submission(result string)
	OpenDrafts(n int)
}

type nopRecorder struct{}

func (nopRecorder) DraftStarted()     {}
func (nopRecorder) Submission(string) {}
func (nopRecorder) OpenDrafts(int)    {}

// Service handles draft editing and expense submission
type Service struct {
	repo      Store
	directory Directory
	notifier  Notifier
	drafts    *Registry
	engine    *split.Engine
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a new expense service with dependencies injected.
// notifier and recorder may be nil.
func NewService(repo Store, directory Directory, notifier Notifier, drafts *Registry, engine *split.Engine, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		repo:      repo,
		directory: directory,
		notifier:  notifier,
		drafts:    drafts,
		engine:    engine,
		recorder:  recorder,
		logger:    slog.Default().With("component", "expense"),
		now:       time.Now,
	}
}

// Engine returns the split engine used for every draft
func (s *Service) Engine() *split.Engine {
	return s.engine
}

// StartDraft opens a new draft for userID. The caller is always the first
// participant and the default payer; a group or explicit participant list adds
// the others.
func (s *Service) StartDraft(ctx context.Context, userID string, req *StartDraftRequest) (*Draft, error) {
	selves, err := s.directory.Participants(ctx, []string{userID})
	if err != nil {
		return nil, err
	}
	d := NewDraft(s.engine, selves[0], s.now())

	var others []split.Participant
	switch {
	case req.GroupID != "":
		members, err := s.directory.GroupParticipants(ctx, req.GroupID)
		if err != nil {
			return nil, err
		}
		if !containsParticipant(members, userID) {
			return nil, ErrNotGroupMember
		}
		d.GroupID = req.GroupID
		others = members
	case len(req.ParticipantIDs) > 0:
		others, err = s.directory.Participants(ctx, req.ParticipantIDs)
		if err != nil {
			return nil, err
		}
	}

	if len(others) > 0 {
		participants := append([]split.Participant{selves[0]}, withoutParticipant(others, userID)...)
		if err := d.SetParticipants(participants); err != nil {
			return nil, err
		}
	}

	if err := s.apply(d, &req.DraftFields); err != nil {
		return nil, err
	}

	snapshot := d.Clone()
	s.drafts.Put(d)
	s.recorder.DraftStarted()
	s.recorder.OpenDrafts(s.drafts.Size())
	s.logger.Info("draft started", "draft_id", d.ID, "user_id", userID, "participants", len(d.Participants))

	return snapshot, nil
}

// GetDraft returns a snapshot of one of the caller's drafts
func (s *Service) GetDraft(ctx context.Context, userID, draftID string) (*Draft, error) {
	return s.edit(userID, draftID, func(d *Draft) error { return nil })
}

// UpdateDraft applies form changes to a draft. Participant IDs are resolved
// through the directory before the draft is locked.
func (s *Service) UpdateDraft(ctx context.Context, userID, draftID string, req *UpdateDraftRequest) (*Draft, error) {
	if req.Mode != nil {
		if _, err := split.ParseMode(*req.Mode); err != nil {
			return nil, err
		}
	}

	var participants []split.Participant
	if req.ParticipantIDs != nil {
		resolved, err := s.directory.Participants(ctx, req.ParticipantIDs)
		if err != nil {
			return nil, err
		}
		participants = resolved
	}

	return s.edit(userID, draftID, func(d *Draft) error {
		if participants != nil {
			if err := d.SetParticipants(participants); err != nil {
				return err
			}
		}
		return s.apply(d, &req.DraftFields)
	})
}

// SetLinePercentage edits one participant's percentage
func (s *Service) SetLinePercentage(ctx context.Context, userID, draftID, lineUserID, raw string) (*Draft, error) {
	return s.edit(userID, draftID, func(d *Draft) error {
		return d.SetPercentage(lineUserID, split.ParsePercentage(raw))
	})
}

// SetLineAmount edits one participant's exact amount
func (s *Service) SetLineAmount(ctx context.Context, userID, draftID, lineUserID, raw string) (*Draft, error) {
	return s.edit(userID, draftID, func(d *Draft) error {
		return d.SetExactAmount(lineUserID, raw)
	})
}

// ResetDraft discards manual edits and reseeds the current mode
func (s *Service) ResetDraft(ctx context.Context, userID, draftID string) (*Draft, error) {
	return s.edit(userID, draftID, func(d *Draft) error {
		d.Reset()
		return nil
	})
}

// AbandonDraft discards a draft without saving anything
func (s *Service) AbandonDraft(ctx context.Context, userID, draftID string) error {
	if _, err := s.edit(userID, draftID, func(d *Draft) error { return nil }); err != nil {
		return err
	}
	s.drafts.Delete(draftID)
	s.recorder.OpenDrafts(s.drafts.Size())
	return nil
}

// Submit runs the submission gate and persists the expense.
//
// Validation failures and unreconciled splits make no store call. A store
// failure is returned wrapped in ErrPersistence with the store's message
// intact. In every failure case the draft stays open and unchanged.
func (s *Service) Submit(ctx context.Context, userID, draftID string) (*ExpenseWithSplits, error) {
	var created *ExpenseWithSplits
	_, err := s.edit(userID, draftID, func(d *Draft) error {
		payload, err := d.Finalize()
		if err != nil {
			var verr *ValidationError
			switch {
			case errors.As(err, &verr):
				s.recorder.Submission(ResultInvalid)
			case errors.Is(err, split.ErrUnreconciled):
				s.recorder.Submission(ResultUnreconciled)
			}
			return err
		}

		created, err = s.repo.CreateExpense(ctx, payload)
		if err != nil {
			s.recorder.Submission(ResultPersistenceError)
			s.logger.Error("failed to persist expense", "draft_id", d.ID, "error", err)
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		// removed under the draft lock so a queued submit finds nothing
		s.drafts.Delete(d.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Submission(ResultAccepted)
	s.recorder.OpenDrafts(s.drafts.Size())
	s.logger.Info("expense submitted", "draft_id", draftID, "expense_id", created.Expense.ID)

	if s.notifier != nil {
		if err := s.notifier.ExpenseCreated(ctx, created); err != nil {
			s.logger.Warn("failed to notify participants", "expense_id", created.Expense.ID, "error", err)
		}
	}
	return created, nil
}

// Preview computes a split without opening a draft
func (s *Service) Preview(req *PreviewRequest) (*PreviewResponse, error) {
	mode, err := split.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	total := s.engine.Currency().ParseOrZero(string(req.Amount))

	participants := make([]split.Participant, len(req.ParticipantIDs))
	for i, id := range req.ParticipantIDs {
		participants[i] = split.Participant{ID: id}
	}

	lines, err := s.engine.Compute(mode, total, participants, req.PayerID)
	if err != nil {
		return nil, err
	}
	status := s.engine.Check(lines, total)

	return &PreviewResponse{
		Mode:     mode,
		Amount:   total,
		Lines:    toLineResponses(s.engine, lines, "", nil),
		Status:   status,
		Warnings: s.engine.Warnings(mode, status, total),
	}, nil
}

// GetExpenseByID retrieves an expense with its splits
func (s *Service) GetExpenseByID(ctx context.Context, id string) (*ExpenseWithSplits, error) {
	expense, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if expense == nil {
		return nil, ErrExpenseNotFound
	}

	splits, err := s.repo.GetSplitsByExpenseID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ExpenseWithSplits{
		Expense: expense,
		Splits:  splits,
	}, nil
}

// ListExpensesByUserID retrieves the expenses a user takes part in
func (s *Service) ListExpensesByUserID(ctx context.Context, userID string, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListExpensesByUserID(ctx, userID, perPage, offset)
}

// CleanExpired drops drafts nobody touched within the TTL
func (s *Service) CleanExpired() int {
	n := s.drafts.CleanExpired()
	if n > 0 {
		s.logger.Debug("expired drafts removed", "count", n)
	}
	s.recorder.OpenDrafts(s.drafts.Size())
	return n
}

func (s *Service) edit(userID, draftID string, fn func(d *Draft) error) (*Draft, error) {
	var snapshot *Draft
	err := s.drafts.Edit(draftID, func(d *Draft) error {
		if d.OwnerID != userID {
			return ErrNotDraftOwner
		}
		if err := fn(d); err != nil {
			return err
		}
		d.UpdatedAt = s.now()
		snapshot = d.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// apply copies the set fields onto the draft. Amount and payer go after the
// participant list and the mode goes last so a mode switch seeds from the
// final values.
func (s *Service) apply(d *Draft, f *DraftFields) error {
	mode := d.Mode
	if f.Mode != nil {
		parsed, err := split.ParseMode(*f.Mode)
		if err != nil {
			return err
		}
		mode = parsed
	}

	if f.Description != nil {
		d.Description = *f.Description
	}
	if f.Category != nil {
		d.Category = *f.Category
	}
	if f.Date != nil {
		d.Date = time.UnixMilli(*f.Date)
	}
	if f.Amount != nil {
		if err := d.SetAmount(s.engine.Currency().ParseOrZero(string(*f.Amount))); err != nil {
			return err
		}
	}
	if f.PayerID != nil {
		d.SetPayer(*f.PayerID)
	}
	d.SetMode(mode)
	return nil
}

func containsParticipant(ps []split.Participant, id string) bool {
	for _, p := range ps {
		if p.ID == id {
			return true
		}
	}
	return false
}

func withoutParticipant(ps []split.Participant, id string) []split.Participant {
	out := make([]split.Participant, 0, len(ps))
	for _, p := range ps {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
