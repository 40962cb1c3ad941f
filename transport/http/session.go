package http

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionManager tracks MCP sessions for streamable HTTP.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// Session represents an MCP session
type Session struct {
	ID              string
	ProtocolVersion string
	Initialized     bool
	Created         time.Time
	LastSeen        time.Time
}

// NewSessionManager creates a new session manager
func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// CreateSession opens a session under a fresh random id.
func (sm *SessionManager) CreateSession(protocolVersion string) string {
	id := uuid.NewString()
	now := time.Now()

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[id] = &Session{
		ID:              id,
		ProtocolVersion: protocolVersion,
		Created:         now,
		LastSeen:        now,
	}
	return id
}

// TouchSession refreshes LastSeen and reports whether the session exists.
func (sm *SessionManager) TouchSession(sessionID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if exists {
		session.LastSeen = time.Now()
	}
	return exists
}

// HasSession reports whether the session exists.
func (sm *SessionManager) HasSession(sessionID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, exists := sm.sessions[sessionID]
	return exists
}

// ProtocolVersion returns the version negotiated for a session.
func (sm *SessionManager) ProtocolVersion(sessionID string) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[sessionID]
	if !exists {
		return "", false
	}
	return session.ProtocolVersion, true
}

// MarkInitialized records the client's initialized notification.
func (sm *SessionManager) MarkInitialized(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, exists := sm.sessions[sessionID]; exists {
		session.Initialized = true
	}
}

// RemoveSession removes a session
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Count returns the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupSessions removes expired sessions
func (sm *SessionManager) CleanupSessions(timeout time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	now := time.Now()
	for sessionID, session := range sm.sessions {
		if now.Sub(session.LastSeen) > timeout {
			delete(sm.sessions, sessionID)
			removed++
		}
	}
	return removed
}
