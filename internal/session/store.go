package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store keeps sessions by id. It is bounded: when full, the oldest session
// is evicted, and sessions idle longer than ttl are dropped on access.
type Store struct {
	sessions map[string]*Session
	order    []string // insertion order for eviction
	maxSize  int
	ttl      time.Duration
	mu       sync.Mutex
}

// NewStore creates a store holding at most maxSize sessions.
func NewStore(maxSize int, ttl time.Duration) *Store {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Store{
		sessions: make(map[string]*Session),
		order:    make([]string, 0, maxSize),
		maxSize:  maxSize,
		ttl:      ttl,
	}
}

// Create starts a new idle session with a random id.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := New(uuid.NewString())

	for len(s.sessions) >= s.maxSize && len(s.order) > 0 {
		s.remove(s.order[0])
	}

	s.sessions[sess.id] = sess
	s.order = append(s.order, sess.id)
	return sess
}

// Get returns the session with id unless it is unknown or expired.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess, time.Now()) {
		s.remove(id)
		return nil, false
	}
	return sess, true
}

// Prune drops every expired session and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for _, id := range append([]string(nil), s.order...) {
		if s.expired(s.sessions[id], now) {
			s.remove(id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	if s.ttl <= 0 {
		return false
	}
	return now.Sub(sess.lastUpdate()) > s.ttl
}

// remove must be called with mu held.
func (s *Store) remove(id string) {
	delete(s.sessions, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
