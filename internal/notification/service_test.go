package notification

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/database"
	"github.com/fkhayef/splitdraft/internal/database/dbtest"
	"github.com/fkhayef/splitdraft/internal/expense"
	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
	"github.com/fkhayef/splitdraft/pkg/middleware"
)

type fakePublisher struct {
	events []*ExpenseCreatedEvent
	err    error
}

func (p *fakePublisher) PublishExpenseCreated(ctx context.Context, e *ExpenseCreatedEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db := dbtest.New(t)
	for i, id := range []string{"A", "B", "C"} {
		dbtest.Exec(t, db, `INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
			id, "User "+id, id+"@example.com", int64(i))
	}
	return db
}

func hotel() *expense.ExpenseWithSplits {
	return &expense.ExpenseWithSplits{
		Expense: &expense.Expense{
			ID:          "exp-1",
			PayerID:     "A",
			Description: "Hotel",
			Amount:      decimal.RequireFromString("100"),
			SplitType:   split.ModeEqual,
			CreatedAt:   time.Now(),
		},
		Splits: []*expense.Split{
			{ID: "s1", ExpenseID: "exp-1", UserID: "A", Amount: decimal.RequireFromString("33.34"), Paid: true},
			{ID: "s2", ExpenseID: "exp-1", UserID: "B", Amount: decimal.RequireFromString("33.33")},
			{ID: "s3", ExpenseID: "exp-1", UserID: "C", Amount: decimal.RequireFromString("33.33")},
		},
	}
}

func TestExpenseCreated(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	s := NewService(NewRepository(db), pub, money.INR)
	ctx := context.Background()

	require.NoError(t, s.ExpenseCreated(ctx, hotel()))

	payerNotes, total, err := s.ListByRecipientID(ctx, "A", 1, 20, false)
	require.NoError(t, err)
	assert.Equal(t, 0, total, "the payer is not notified")
	assert.Empty(t, payerNotes)

	notes, total, err := s.ListByRecipientID(ctx, "B", 1, 20, false)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	n := notes[0]
	assert.Equal(t, `New expense "Hotel": your share is ₹33.33`, n.Message)
	assert.False(t, n.IsRead)
	require.NotNil(t, n.RelatedEntityID)
	assert.Equal(t, "exp-1", *n.RelatedEntityID)
	assert.Equal(t, EntityExpense, *n.RelatedEntityType)

	require.Len(t, pub.events, 1)
	event := pub.events[0]
	assert.Equal(t, "exp-1", event.ExpenseID)
	assert.Equal(t, "100.00", event.Amount)
	assert.Equal(t, []string{"A", "B", "C"}, event.Participants)
}

func TestExpenseCreated_UsesCurrencyPrecision(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{}
	s := NewService(NewRepository(db), pub, money.Lookup("JPY", ""))
	ctx := context.Background()

	ramen := &expense.ExpenseWithSplits{
		Expense: &expense.Expense{ID: "exp-2", PayerID: "A", Description: "Ramen", Amount: decimal.NewFromInt(2400), SplitType: split.ModeEqual},
		Splits: []*expense.Split{
			{ID: "s1", ExpenseID: "exp-2", UserID: "A", Amount: decimal.NewFromInt(1200), Paid: true},
			{ID: "s2", ExpenseID: "exp-2", UserID: "B", Amount: decimal.NewFromInt(1200)},
		},
	}
	require.NoError(t, s.ExpenseCreated(ctx, ramen))

	notes, _, err := s.ListByRecipientID(ctx, "B", 1, 20, false)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, `New expense "Ramen": your share is ¥1200`, notes[0].Message)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "2400", pub.events[0].Amount)
	assert.Equal(t, "JPY", pub.events[0].Currency)
}

func TestExpenseCreated_JoinsErrors(t *testing.T) {
	db := newTestDB(t)
	pub := &fakePublisher{err: errors.New("broker down")}
	s := NewService(NewRepository(db), pub, money.INR)

	err := s.ExpenseCreated(context.Background(), hotel())
	assert.ErrorIs(t, err, pub.err)

	count, err := s.GetUnreadCount(context.Background(), "C")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rows are stored even when publishing fails")
}

func TestMarkAsRead(t *testing.T) {
	db := newTestDB(t)
	s := NewService(NewRepository(db), nil, money.INR)
	ctx := context.Background()
	require.NoError(t, s.ExpenseCreated(ctx, hotel()))

	notes, _, err := s.ListByRecipientID(ctx, "B", 1, 20, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	id := notes[0].ID

	assert.ErrorIs(t, s.MarkAsRead(ctx, id, "C"), ErrNotRecipient)
	assert.ErrorIs(t, s.MarkAsRead(ctx, "missing", "B"), ErrNotificationNotFound)
	require.NoError(t, s.MarkAsRead(ctx, id, "B"))

	unread, total, err := s.ListByRecipientID(ctx, "B", 1, 20, true)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, unread)

	require.NoError(t, s.MarkAllAsRead(ctx, "C"))
	count, err := s.GetUnreadCount(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNotification_ToResponse(t *testing.T) {
	entity, id := EntityExpense, "exp-1"
	n := &Notification{
		ID:                "n1",
		Message:           "hi",
		RelatedEntityType: &entity,
		RelatedEntityID:   &id,
		CreatedAt:         time.UnixMilli(0),
	}

	resp := n.ToResponse()
	assert.Equal(t, "exp-1", resp.ExpenseID)
	assert.False(t, resp.Read)
	assert.Equal(t, "1970-01-01T00:00:00Z", resp.CreatedAt)

	other := "GROUP"
	n.RelatedEntityType = &other
	assert.Empty(t, n.ToResponse().ExpenseID)
}

func TestHandler_MarkAsRead(t *testing.T) {
	db := newTestDB(t)
	s := NewService(NewRepository(db), nil, money.INR)
	require.NoError(t, s.ExpenseCreated(context.Background(), hotel()))
	notes, _, err := s.ListByRecipientID(context.Background(), "B", 1, 20, false)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.DevUserMiddleware)
	r.Mount("/notifications", NewHandler(s).Routes())

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		status int
	}{
		{"anonymous", http.MethodGet, "/notifications", "", http.StatusUnauthorized},
		{"list", http.MethodGet, "/notifications?unread_only=true", "B", http.StatusOK},
		{"get", http.MethodGet, "/notifications/" + notes[0].ID, "B", http.StatusOK},
		{"get not recipient", http.MethodGet, "/notifications/" + notes[0].ID, "C", http.StatusForbidden},
		{"not recipient", http.MethodPost, "/notifications/" + notes[0].ID + "/read", "C", http.StatusForbidden},
		{"missing", http.MethodPost, "/notifications/missing/read", "B", http.StatusNotFound},
		{"read", http.MethodPost, "/notifications/" + notes[0].ID + "/read", "B", http.StatusOK},
		{"unread count", http.MethodGet, "/notifications/unread-count", "B", http.StatusOK},
		{"read all", http.MethodPost, "/notifications/read-all", "C", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.user != "" {
				req.Header.Set(middleware.DevUserHeader, tt.user)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
