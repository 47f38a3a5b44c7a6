package expense

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/directory"
	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
)

type fakeDirectory struct {
	users  map[string]split.Participant
	groups map[string][]string
}

func newFakeDirectory(ids ...string) *fakeDirectory {
	d := &fakeDirectory{users: map[string]split.Participant{}, groups: map[string][]string{}}
	for _, id := range ids {
		d.users[id] = participant(id)
	}
	return d
}

func (d *fakeDirectory) Participants(ctx context.Context, ids []string) ([]split.Participant, error) {
	out := make([]split.Participant, len(ids))
	for i, id := range ids {
		p, ok := d.users[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", directory.ErrUserNotFound, id)
		}
		out[i] = p
	}
	return out, nil
}

func (d *fakeDirectory) GroupParticipants(ctx context.Context, groupID string) ([]split.Participant, error) {
	members, ok := d.groups[groupID]
	if !ok {
		return nil, directory.ErrGroupNotFound
	}
	return d.Participants(ctx, members)
}

type fakeStore struct {
	mu       sync.Mutex
	payloads []*Payload
	err      error
	expenses map[string]*ExpenseWithSplits
	listArgs [3]any
}

func (s *fakeStore) CreateExpense(ctx context.Context, payload *Payload) (*ExpenseWithSplits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	if s.err != nil {
		return nil, s.err
	}

	e := &Expense{
		ID:          fmt.Sprintf("exp-%d", len(s.payloads)),
		PayerID:     payload.PayerID,
		Description: payload.Description,
		Amount:      payload.Amount,
		Category:    payload.Category,
		Date:        time.UnixMilli(payload.Date),
		SplitType:   payload.Mode,
		CreatedAt:   testNow,
	}
	ews := &ExpenseWithSplits{Expense: e}
	for i, ps := range payload.Splits {
		ews.Splits = append(ews.Splits, &Split{
			ID:        fmt.Sprintf("%s-s%d", e.ID, i),
			ExpenseID: e.ID,
			UserID:    ps.UserID,
			Amount:    ps.Amount,
			Paid:      ps.Paid,
		})
	}
	if s.expenses == nil {
		s.expenses = map[string]*ExpenseWithSplits{}
	}
	s.expenses[e.ID] = ews
	return ews, nil
}

func (s *fakeStore) GetExpenseByID(ctx context.Context, id string) (*Expense, error) {
	if ews, ok := s.expenses[id]; ok {
		return ews.Expense, nil
	}
	return nil, nil
}

func (s *fakeStore) GetSplitsByExpenseID(ctx context.Context, expenseID string) ([]*Split, error) {
	if ews, ok := s.expenses[expenseID]; ok {
		return ews.Splits, nil
	}
	return nil, nil
}

func (s *fakeStore) ListExpensesByUserID(ctx context.Context, userID string, limit, offset int) ([]*Expense, int, error) {
	s.listArgs = [3]any{userID, limit, offset}
	var out []*Expense
	for _, ews := range s.expenses {
		out = append(out, ews.Expense)
	}
	return out, len(out), nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

type fakeNotifier struct {
	created []*ExpenseWithSplits
	err     error
}

func (n *fakeNotifier) ExpenseCreated(ctx context.Context, e *ExpenseWithSplits) error {
	n.created = append(n.created, e)
	return n.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	started int
	results map[string]int
	open    int
}

func (r *fakeRecorder) DraftStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) Submission(result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]int{}
	}
	r.results[result]++
}

func (r *fakeRecorder) OpenDrafts(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.open = n
}

type serviceFixture struct {
	service  *Service
	store    *fakeStore
	dir      *fakeDirectory
	notifier *fakeNotifier
	recorder *fakeRecorder
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		store:    &fakeStore{},
		dir:      newFakeDirectory("A", "B", "C", "D"),
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	f.dir.groups["trip"] = []string{"B", "A", "C"}
	f.service = NewService(f.store, f.dir, f.notifier, NewRegistry(100, time.Hour), split.NewEngine(money.INR), f.recorder)
	f.service.now = func() time.Time { return testNow }
	return f
}

func strPtr(s string) *string { return &s }

func rawPtr(s string) *RawInput {
	r := RawInput(s)
	return &r
}

func (f *serviceFixture) start(t *testing.T, req *StartDraftRequest) *Draft {
	t.Helper()
	d, err := f.service.StartDraft(context.Background(), "A", req)
	require.NoError(t, err)
	return d
}

func TestService_StartDraftWithParticipants(t *testing.T) {
	f := newServiceFixture()

	d := f.start(t, &StartDraftRequest{
		ParticipantIDs: []string{"B", "A", "C"},
		DraftFields: DraftFields{
			Description: strPtr("Groceries"),
			Amount:      rawPtr("100"),
		},
	})

	assert.Equal(t, []string{"A", "B", "C"}, []string{d.Participants[0].ID, d.Participants[1].ID, d.Participants[2].ID}, "caller goes first")
	assert.Equal(t, "A", d.PayerID)
	assert.Equal(t, split.ModeEqual, d.Mode)
	assert.Equal(t, []string{"33.34", "33.33", "33.33"}, amounts(d.Lines))
	assert.Equal(t, 1, f.recorder.started)
	assert.Equal(t, 1, f.recorder.open)
}

func TestService_StartDraftFromGroup(t *testing.T) {
	f := newServiceFixture()

	d := f.start(t, &StartDraftRequest{GroupID: "trip"})
	assert.Equal(t, "trip", d.GroupID)
	require.Len(t, d.Participants, 3)
	assert.Equal(t, "A", d.Participants[0].ID)
	assert.Equal(t, "B", d.Participants[1].ID)
	assert.Equal(t, "C", d.Participants[2].ID)

	f.dir.groups["other"] = []string{"B", "C"}
	_, err := f.service.StartDraft(context.Background(), "A", &StartDraftRequest{GroupID: "other"})
	assert.ErrorIs(t, err, ErrNotGroupMember)

	_, err = f.service.StartDraft(context.Background(), "A", &StartDraftRequest{GroupID: "missing"})
	assert.ErrorIs(t, err, directory.ErrGroupNotFound)
}

func TestService_StartDraftErrors(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.StartDraft(context.Background(), "A", &StartDraftRequest{ParticipantIDs: []string{"Z"}})
	assert.ErrorIs(t, err, directory.ErrUserNotFound)

	_, err = f.service.StartDraft(context.Background(), "A", &StartDraftRequest{DraftFields: DraftFields{Mode: strPtr("THIRDS")}})
	assert.ErrorIs(t, err, split.ErrUnknownMode)

	assert.Equal(t, 0, f.service.drafts.Size())
}

func TestService_UpdateDraft(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	d := f.start(t, &StartDraftRequest{ParticipantIDs: []string{"B"}, DraftFields: DraftFields{Amount: rawPtr("90")}})

	updated, err := f.service.UpdateDraft(ctx, "A", d.ID, &UpdateDraftRequest{
		ParticipantIDs: []string{"A", "B", "C"},
		DraftFields: DraftFields{
			Mode:    strPtr("percent"),
			PayerID: strPtr("C"),
			Amount:  rawPtr("12,50"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, split.ModePercentage, updated.Mode)
	assert.Equal(t, "12.5", updated.Amount.String())
	assert.Equal(t, []string{"4.17", "4.17", "4.16"}, amounts(updated.Lines))
	assert.True(t, updated.Lines[2].Paid)

	_, err = f.service.UpdateDraft(ctx, "B", d.ID, &UpdateDraftRequest{DraftFields: DraftFields{Description: strPtr("mine")}})
	assert.ErrorIs(t, err, ErrNotDraftOwner)

	_, err = f.service.UpdateDraft(ctx, "A", d.ID, &UpdateDraftRequest{DraftFields: DraftFields{
		Description: strPtr("half applied"),
		Mode:        strPtr("bogus"),
	}})
	assert.ErrorIs(t, err, split.ErrUnknownMode)

	got, err := f.service.GetDraft(ctx, "A", d.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Description, "a rejected update changes nothing")

	_, err = f.service.UpdateDraft(ctx, "A", "missing", &UpdateDraftRequest{})
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestService_UnparseableAmountCountsAsZero(t *testing.T) {
	f := newServiceFixture()
	d := f.start(t, &StartDraftRequest{ParticipantIDs: []string{"B"}, DraftFields: DraftFields{Amount: rawPtr("abc")}})

	assert.True(t, d.Amount.IsZero())
	assert.Empty(t, d.Lines)
}

func TestService_OversizedAmountCountsAsZero(t *testing.T) {
	f := newServiceFixture()
	d := f.start(t, &StartDraftRequest{ParticipantIDs: []string{"B"}, DraftFields: DraftFields{Amount: rawPtr("100")}})

	for _, raw := range []string{"1e1000000000", "100000000000000000"} {
		got, err := f.service.UpdateDraft(context.Background(), "A", d.ID, &UpdateDraftRequest{
			DraftFields: DraftFields{Amount: rawPtr(raw)},
		})
		require.NoError(t, err)
		assert.True(t, got.Amount.IsZero(), raw)
		assert.Empty(t, got.Lines, raw)
	}
}

func TestService_LineEditsAndReset(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	d := f.start(t, &StartDraftRequest{
		ParticipantIDs: []string{"B"},
		DraftFields:    DraftFields{Amount: rawPtr("200"), Mode: strPtr("PERCENTAGE")},
	})

	got, err := f.service.SetLinePercentage(ctx, "A", d.ID, "A", "75%")
	require.NoError(t, err)
	assert.Equal(t, StateDirty, got.State)
	assert.Equal(t, []string{"150.00", "100.00"}, amounts(got.Lines))

	got, err = f.service.SetLinePercentage(ctx, "A", d.ID, "B", "250")
	require.NoError(t, err)
	assert.True(t, got.Lines[1].Percentage.Equal(dec("100")), "percentages clamp at 100")

	_, err = f.service.SetLineAmount(ctx, "A", d.ID, "A", "10")
	assert.ErrorIs(t, err, ErrEditNotAllowed)

	got, err = f.service.ResetDraft(ctx, "A", d.ID)
	require.NoError(t, err)
	assert.Equal(t, StateClean, got.State)
	assert.Equal(t, []string{"100.00", "100.00"}, amounts(got.Lines))
}

func TestService_AbandonDraft(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	d := f.start(t, &StartDraftRequest{})

	assert.ErrorIs(t, f.service.AbandonDraft(ctx, "B", d.ID), ErrNotDraftOwner)
	require.NoError(t, f.service.AbandonDraft(ctx, "A", d.ID))
	assert.ErrorIs(t, f.service.AbandonDraft(ctx, "A", d.ID), ErrDraftNotFound)
	assert.Equal(t, 0, f.recorder.open)
}

func percentageDraft(t *testing.T, f *serviceFixture, a, b string) *Draft {
	t.Helper()
	ctx := context.Background()
	d := f.start(t, &StartDraftRequest{
		ParticipantIDs: []string{"B"},
		DraftFields: DraftFields{
			Description: strPtr("Hotel"),
			Amount:      rawPtr("100"),
			Mode:        strPtr("PERCENTAGE"),
		},
	})
	_, err := f.service.SetLinePercentage(ctx, "A", d.ID, "A", a)
	require.NoError(t, err)
	_, err = f.service.SetLinePercentage(ctx, "A", d.ID, "B", b)
	require.NoError(t, err)
	return d
}

func TestService_SubmitReconciled(t *testing.T) {
	f := newServiceFixture()
	d := percentageDraft(t, f, "60", "40")

	created, err := f.service.Submit(context.Background(), "A", d.ID)
	require.NoError(t, err)

	require.Equal(t, 1, f.store.calls())
	payload := f.store.payloads[0]
	assert.Equal(t, "Hotel", payload.Description)
	assert.Equal(t, "A", payload.PayerID)
	require.Len(t, payload.Splits, 2)
	assert.Equal(t, "60.00", payload.Splits[0].Amount.StringFixed(2))
	assert.True(t, payload.Splits[0].Paid)
	assert.Equal(t, "40.00", payload.Splits[1].Amount.StringFixed(2))

	assert.Equal(t, created, f.notifier.created[0])
	assert.Equal(t, 1, f.recorder.results[ResultAccepted])

	_, err = f.service.GetDraft(context.Background(), "A", d.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound, "submitted drafts are closed")
}

func TestService_SubmitUnreconciledMakesNoStoreCall(t *testing.T) {
	f := newServiceFixture()
	d := percentageDraft(t, f, "60", "30")

	created, err := f.service.Submit(context.Background(), "A", d.ID)
	assert.Nil(t, created)
	assert.ErrorIs(t, err, split.ErrUnreconciled)
	assert.Equal(t, 0, f.store.calls())
	assert.Equal(t, 1, f.recorder.results[ResultUnreconciled])

	kept, err := f.service.GetDraft(context.Background(), "A", d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"60.00", "30.00"}, amounts(kept.Lines))

	_, err = f.service.SetLinePercentage(context.Background(), "A", d.ID, "B", "40")
	require.NoError(t, err)
	_, err = f.service.Submit(context.Background(), "A", d.ID)
	assert.NoError(t, err, "a corrected draft can be resubmitted")
}

func TestService_SubmitInvalid(t *testing.T) {
	f := newServiceFixture()
	d := f.start(t, &StartDraftRequest{DraftFields: DraftFields{Amount: rawPtr("10")}})

	_, err := f.service.Submit(context.Background(), "A", d.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "description")
	assert.Contains(t, verr.Fields, "participants")
	assert.Equal(t, 0, f.store.calls())
	assert.Equal(t, 1, f.recorder.results[ResultInvalid])
}

func TestService_SubmitPersistenceFailureKeepsDraft(t *testing.T) {
	f := newServiceFixture()
	f.store.err = errors.New("connection refused")
	d := percentageDraft(t, f, "60", "40")

	_, err := f.service.Submit(context.Background(), "A", d.ID)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, f.store.err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, f.recorder.results[ResultPersistenceError])
	assert.Empty(t, f.notifier.created)

	_, err = f.service.GetDraft(context.Background(), "A", d.ID)
	require.NoError(t, err)

	f.store.err = nil
	_, err = f.service.Submit(context.Background(), "A", d.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, f.store.calls())
}

func TestService_NotifierFailureDoesNotFailSubmit(t *testing.T) {
	f := newServiceFixture()
	f.notifier.err = errors.New("broker down")
	d := percentageDraft(t, f, "50", "50")

	created, err := f.service.Submit(context.Background(), "A", d.ID)
	require.NoError(t, err)
	assert.NotNil(t, created)
}

func TestService_ConcurrentSubmitSavesOnce(t *testing.T) {
	f := newServiceFixture()
	d := percentageDraft(t, f, "50", "50")

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Submit(context.Background(), "A", d.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrDraftNotFound)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.calls())
}

func TestService_Preview(t *testing.T) {
	f := newServiceFixture()

	result, err := f.service.Preview(&PreviewRequest{
		Mode:           "EVEN",
		Amount:         "100",
		ParticipantIDs: []string{"A", "B", "C"},
		PayerID:        "B",
	})
	require.NoError(t, err)
	assert.Equal(t, split.ModeEqual, result.Mode)
	require.Len(t, result.Lines, 3)
	assert.Equal(t, "33.34", result.Lines[0].Amount.StringFixed(2))
	assert.Equal(t, "₹33.33", result.Lines[1].AmountDisplay)
	assert.True(t, result.Lines[1].Paid)
	assert.True(t, result.Status.AmountOK)
	assert.Empty(t, result.Warnings)

	_, err = f.service.Preview(&PreviewRequest{Mode: "thirds"})
	assert.ErrorIs(t, err, split.ErrUnknownMode)
}

func TestService_GetAndListExpenses(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()
	d := percentageDraft(t, f, "50", "50")
	created, err := f.service.Submit(ctx, "A", d.ID)
	require.NoError(t, err)

	got, err := f.service.GetExpenseByID(ctx, created.Expense.ID)
	require.NoError(t, err)
	assert.Len(t, got.Splits, 2)

	_, err = f.service.GetExpenseByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrExpenseNotFound)

	_, total, err := f.service.ListExpensesByUserID(ctx, "A", 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, [3]any{"A", 20, 0}, f.store.listArgs)

	_, _, err = f.service.ListExpensesByUserID(ctx, "A", 3, 10)
	require.NoError(t, err)
	assert.Equal(t, [3]any{"A", 10, 20}, f.store.listArgs)
}

func TestService_CleanExpired(t *testing.T) {
	f := newServiceFixture()
	clock := &fakeClock{now: testNow}
	f.service.drafts.now = clock.Now
	f.start(t, &StartDraftRequest{})
	f.start(t, &StartDraftRequest{})

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 2, f.service.CleanExpired())
	assert.Equal(t, 0, f.recorder.open)
}
