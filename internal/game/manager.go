package game

import (
	"errors"
	"sync"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists for room")
)

// SessionManager is the registry of live sessions, one per room. It is
// owned by the orchestrator process: empty on start, drained on shutdown.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Create registers a session for roomID. Creating a second session for the
// same room fails with ErrSessionExists instead of silently replacing the
// first one, which would leak its live timers.
func (sm *SessionManager) Create(roomID string, s *Session) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.sessions[roomID] != nil {
		return ErrSessionExists
	}
	sm.sessions[roomID] = s
	return nil
}

// Get returns the session for roomID or ErrSessionNotFound. Late events
// for torn-down rooms hit that error and are dropped by the caller.
func (sm *SessionManager) Get(roomID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s := sm.sessions[roomID]
	if s == nil {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Clear closes the session's timers and removes it from the registry.
// No-op when the room has no session. A session is never dropped with a
// live timer still pointing at it.
func (sm *SessionManager) Clear(roomID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if s := sm.sessions[roomID]; s != nil {
		s.Close()
		delete(sm.sessions, roomID)
	}
}

// Len reports the number of live sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Teardown drains the registry on process shutdown, cancelling every
// session's timers.
func (sm *SessionManager) Teardown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, s := range sm.sessions {
		s.Close()
		delete(sm.sessions, id)
	}
}
