package expense

import (
	"container/list"
	"sync"
	"time"
)

// Registry holds open drafts in memory with LRU and TTL eviction.
//
// The registry lock only guards the index. Each draft has its own lock so a
// slow submission on one draft never blocks edits on another.
type Registry struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	items   map[string]*list.Element
	lru     *list.List
	now     func() time.Time
}

type registryEntry struct {
	mu        sync.Mutex
	key       string
	draft     *Draft
	expiresAt time.Time
}

// NewRegistry creates a registry holding at most maxSize drafts, each expiring
// ttl after its last access
func NewRegistry(maxSize int, ttl time.Duration) *Registry {
	return &Registry{
		maxSize: maxSize,
		ttl:     ttl,
		items:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Put stores a draft, evicting the least recently used one when full
func (r *Registry) Put(d *Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elem, exists := r.items[d.ID]; exists {
		entry := elem.Value.(*registryEntry)
		entry.draft = d
		entry.expiresAt = r.now().Add(r.ttl)
		r.lru.MoveToFront(elem)
		return
	}

	elem := r.lru.PushFront(&registryEntry{
		key:       d.ID,
		draft:     d,
		expiresAt: r.now().Add(r.ttl),
	})
	r.items[d.ID] = elem

	if r.maxSize > 0 && r.lru.Len() > r.maxSize {
		if oldest := r.lru.Back(); oldest != nil {
			r.removeElement(oldest)
		}
	}
}

// Get returns a copy of the draft
func (r *Registry) Get(id string) (*Draft, bool) {
	var snapshot *Draft
	err := r.Edit(id, func(d *Draft) error {
		snapshot = d.Clone()
		return nil
	})
	if err != nil {
		return nil, false
	}
	return snapshot, true
}

// Edit runs fn with exclusive access to the draft. Returns ErrDraftNotFound
// when the draft does not exist, has expired, or was removed while waiting.
func (r *Registry) Edit(id string, fn func(d *Draft) error) error {
	elem, ok := r.touch(id)
	if !ok {
		return ErrDraftNotFound
	}

	entry := elem.Value.(*registryEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !r.present(id, elem) {
		return ErrDraftNotFound
	}
	return fn(entry.draft)
}

// Delete removes a draft and reports whether it was present
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, exists := r.items[id]
	if !exists {
		return false
	}
	r.removeElement(elem)
	return true
}

// CleanExpired removes all expired drafts and returns how many were removed
func (r *Registry) CleanExpired() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var toRemove []*list.Element
	for elem := r.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*registryEntry).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		r.removeElement(elem)
	}
	return len(toRemove)
}

// Size returns the number of open drafts
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Registry) touch(id string) (*list.Element, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, exists := r.items[id]
	if !exists {
		return nil, false
	}
	entry := elem.Value.(*registryEntry)
	now := r.now()
	if now.After(entry.expiresAt) {
		r.removeElement(elem)
		return nil, false
	}
	entry.expiresAt = now.Add(r.ttl)
	r.lru.MoveToFront(elem)
	return elem, true
}

func (r *Registry) present(id string, elem *list.Element) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id] == elem
}

func (r *Registry) removeElement(elem *list.Element) {
	entry := elem.Value.(*registryEntry)
	delete(r.items, entry.key)
	r.lru.Remove(elem)
}
