package expense

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitdraft/internal/expense/split"
	"github.com/fkhayef/splitdraft/internal/money"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(maxSize int, ttl time.Duration) (*Registry, *fakeClock) {
	clock := &fakeClock{now: testNow}
	r := NewRegistry(maxSize, ttl)
	r.now = clock.Now
	return r, clock
}

func draftFor(owner string) *Draft {
	return NewDraft(split.NewEngine(money.INR), participant(owner), testNow)
}

func TestRegistry_PutGet(t *testing.T) {
	r, _ := newTestRegistry(10, time.Hour)
	d := draftFor("A")
	r.Put(d)

	got, ok := r.Get(d.ID)
	require.True(t, ok)
	assert.Equal(t, d.ID, got.ID)

	got.Description = "changed"
	again, _ := r.Get(d.ID)
	assert.Empty(t, again.Description, "Get returns a copy")

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestRegistry_TTL(t *testing.T) {
	r, clock := newTestRegistry(10, time.Minute)
	d := draftFor("A")
	r.Put(d)

	clock.Advance(50 * time.Second)
	_, ok := r.Get(d.ID)
	require.True(t, ok, "access refreshes the TTL")

	clock.Advance(50 * time.Second)
	_, ok = r.Get(d.ID)
	require.True(t, ok)

	clock.Advance(61 * time.Second)
	_, ok = r.Get(d.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Size())
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	r, _ := newTestRegistry(2, time.Hour)
	a, b, c := draftFor("A"), draftFor("B"), draftFor("C")

	r.Put(a)
	r.Put(b)
	_, _ = r.Get(a.ID)
	r.Put(c)

	assert.Equal(t, 2, r.Size())
	_, ok := r.Get(b.ID)
	assert.False(t, ok, "b was least recently used")
	_, ok = r.Get(a.ID)
	assert.True(t, ok)
	_, ok = r.Get(c.ID)
	assert.True(t, ok)
}

func TestRegistry_Edit(t *testing.T) {
	r, _ := newTestRegistry(10, time.Hour)
	d := draftFor("A")
	r.Put(d)

	err := r.Edit(d.ID, func(d *Draft) error {
		d.Description = "Taxi"
		return nil
	})
	require.NoError(t, err)
	got, _ := r.Get(d.ID)
	assert.Equal(t, "Taxi", got.Description)

	boom := errors.New("boom")
	assert.ErrorIs(t, r.Edit(d.ID, func(*Draft) error { return boom }), boom)
	assert.ErrorIs(t, r.Edit("missing", func(*Draft) error { return nil }), ErrDraftNotFound)
}

func TestRegistry_EditSerialisesPerDraft(t *testing.T) {
	r, _ := newTestRegistry(10, time.Hour)
	d := draftFor("A")
	r.Put(d)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Edit(d.ID, func(d *Draft) error {
				d.Description += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := r.Get(d.ID)
	assert.Len(t, got.Description, 50)
}

func TestRegistry_DeleteAndCleanExpired(t *testing.T) {
	r, clock := newTestRegistry(10, time.Minute)
	a, b := draftFor("A"), draftFor("B")
	r.Put(a)

	assert.True(t, r.Delete(a.ID))
	assert.False(t, r.Delete(a.ID))

	r.Put(a)
	clock.Advance(30 * time.Second)
	r.Put(b)
	clock.Advance(45 * time.Second)

	assert.Equal(t, 1, r.CleanExpired())
	assert.Equal(t, 1, r.Size())
	_, ok := r.Get(b.ID)
	assert.True(t, ok)
}
