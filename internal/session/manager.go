package session

import "sync"

// Manager isolates concurrent sessions by session key. Each key owns its own
// Session; there is no shared state between keys.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager constructs an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Put registers a session under a key, replacing any previous one.
func (m *Manager) Put(key string, s *Session) {
	m.mu.Lock()
	m.sessions[key] = s
	m.mu.Unlock()
}

// PutIfAbsent claims a key for a session. It reports false when the key is
// already held, leaving the existing session in place.
func (m *Manager) PutIfAbsent(key string, s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[key]; ok {
		return false
	}
	m.sessions[key] = s
	return true
}

// Get returns the session for a key, if present.
func (m *Manager) Get(key string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[key]
	return s, ok
}

// Remove drops the session for a key.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
}

// Len reports the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
