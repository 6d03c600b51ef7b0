package diagnosis

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the only mutable structure shared between sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func newSession(id, patient string, now time.Time) *Session {
	return &Session{state: State{
		ID:        id,
		Patient:   patient,
		Phase:     PhaseInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// Create registers a session under a fresh random id.
func (s *Store) Create(patient string, now time.Time) *Session {
	sess := newSession(uuid.NewString(), patient, now)
	s.mu.Lock()
	s.sessions[sess.state.ID] = sess
	s.mu.Unlock()
	return sess
}

// GetOrCreate returns the session stored under id, inserting a new one if
// there is none. created reports whether an insert happened.
func (s *Store) GetOrCreate(id, patient string, now time.Time) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, false
	}
	sess = newSession(id, patient, now)
	s.sessions[id] = sess
	return sess, true
}

func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RemoveIdle deletes and returns sessions last touched before cutoff.
// Sessions in the middle of a turn are never idle and are skipped.
func (s *Store) RemoveIdle(cutoff time.Time) []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []State
	for id, sess := range s.sessions {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.state.UpdatedAt.Before(cutoff) {
			sess.closed = true
			delete(s.sessions, id)
			removed = append(removed, sess.state.clone())
		}
		sess.mu.Unlock()
	}
	return removed
}
