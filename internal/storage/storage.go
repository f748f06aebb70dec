package storage

import (
	"sync"

	"github.com/lehigh-university-libraries/nocap/internal/session"
)

// SessionStore keeps one review state per browser session in memory.
type SessionStore struct {
	sessions map[string]*session.State
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.State),
	}
}

// Get returns the state for sessionID, or a fresh empty state when none exists yet.
func (s *SessionStore) Get(sessionID string) *session.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.sessions[sessionID]
	if !exists {
		return session.New()
	}
	return state
}

// Apply runs action against the stored state and stores the result. Transitions
// for the same store never overlap.
func (s *SessionStore) Apply(sessionID string, action session.Action) *session.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := session.Apply(s.sessions[sessionID], action)
	s.sessions[sessionID] = next
	return next
}

func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
