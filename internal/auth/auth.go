// Package auth gates the chat front end by Telegram user id.
package auth

import "sync"

// Service allows everyone when built with an empty list.
type Service struct {
	mu      sync.RWMutex
	open    bool
	allowed map[int64]struct{}
}

func New(allowed []int64) *Service {
	s := &Service{open: len(allowed) == 0, allowed: make(map[int64]struct{}, len(allowed))}
	for _, id := range allowed {
		s.allowed[id] = struct{}{}
	}
	return s
}

func (s *Service) IsAllowed(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.open {
		return true
	}
	_, ok := s.allowed[userID]
	return ok
}

// Allow adds userID and switches an open service to list mode.
func (s *Service) Allow(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	s.allowed[userID] = struct{}{}
}

func (s *Service) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.allowed, userID)
}

func (s *Service) List() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, 0, len(s.allowed))
	for id := range s.allowed {
		out = append(out, id)
	}
	return out
}
