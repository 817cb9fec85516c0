package services

import (
	"sync"
	"time"
)

// SessionStore holds in-flight checkout sessions. Sessions are transient
// per-visitor state; losing them on restart only means the buyer reopens the
// order form.
type SessionStore interface {
	Put(session CheckoutSession)
	Get(sessionID string) (CheckoutSession, bool)
	Delete(sessionID string)
}

type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]CheckoutSession
	now      func() time.Time
}

// NewMemorySessionStore builds a process-local session store. Expired entries
// are dropped lazily on access.
func NewMemorySessionStore(clock func() time.Time) SessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &memorySessionStore{
		sessions: make(map[string]CheckoutSession),
		now:      clock,
	}
}

func (s *memorySessionStore) Put(session CheckoutSession) {
	if session.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.pruneLocked()
}

func (s *memorySessionStore) Get(sessionID string) (CheckoutSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return CheckoutSession{}, false
	}
	if !session.ExpiresAt.IsZero() && !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, sessionID)
		return CheckoutSession{}, false
	}
	return session, true
}

func (s *memorySessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *memorySessionStore) pruneLocked() {
	now := s.now()
	for id, session := range s.sessions {
		if !session.ExpiresAt.IsZero() && !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}
