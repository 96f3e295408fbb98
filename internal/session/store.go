// internal/session/store.go
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/btdesk/internal/core"
)

type entry struct {
	view      View
	createdAt time.Time
	touchedAt time.Time
}

// Store keeps one View per browser session in memory. It is bounded by
// size (oldest session evicted first) and by idle TTL.
type Store struct {
	entries map[string]*entry
	order   []string // Track insertion order for eviction
	maxSize int
	ttl     time.Duration
	mu      sync.RWMutex
	now     func() time.Time
}

// NewStore creates a new session store.
func NewStore(maxSize int, ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]*entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create starts a new session with the initial view.
func (s *Store) Create() (string, View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()
	v := NewView()

	// Evict oldest if at capacity
	for len(s.entries) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		delete(s.entries, oldest)
		s.order = s.order[1:]
	}

	s.entries[id] = &entry{view: v, createdAt: now, touchedAt: now}
	s.order = append(s.order, id)

	return id, v
}

// Get returns the session's current view.
func (s *Store) Get(id string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return View{}, core.ErrSessionNotFound
	}
	e.touchedAt = s.now()
	return e.view, nil
}

// Put replaces the session's view. Concurrent writers are last-write-wins.
func (s *Store) Put(id string, v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return core.ErrSessionNotFound
	}
	e.view = v
	e.touchedAt = s.now()
	return nil
}

// Update applies fn to the session's view under the store lock and keeps
// whatever view fn returns, even when fn also returns an error.
func (s *Store) Update(id string, fn func(View) (View, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		return core.ErrSessionNotFound
	}
	next, err := fn(e.view)
	e.view = next
	e.touchedAt = s.now()
	return err
}

// Sweep drops expired sessions and returns how many remain.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.order[:0]
	for _, id := range s.order {
		e := s.entries[id]
		if e == nil || s.expired(e) {
			delete(s.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	return len(s.entries)
}

// Len returns the number of held sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && s.now().Sub(e.touchedAt) > s.ttl
}
