package session

import (
	"sync"
)

// Manager holds the live session for each authenticated user. API handlers
// resolve the caller's session through it; there is at most one session per
// user id.
type Manager struct {
	gateway  Gateway
	registry Registry
	orders   OrderFeed
	iv       Intervals

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(gw Gateway, registry Registry, orders OrderFeed, iv Intervals) *Manager {
	return &Manager{
		gateway:  gw,
		registry: registry,
		orders:   orders,
		iv:       iv,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the user's session, opening one on first use
func (m *Manager) GetOrCreate(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := New(userID, m.gateway, m.registry, m.orders, m.iv)
	m.sessions[userID] = s
	return s
}

// Get returns the user's session if one is open
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close tears down the user's session if one is open
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
}

// CloseAll tears down every open session (process shutdown)
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
