package session

import (
	"sync"
	"time"
)

// DefaultSessionTTL is how long an idle session is retained.
const DefaultSessionTTL = 30 * time.Minute

type entry struct {
	session  *Session
	lastSeen time.Time
}

// Manager hands out sessions keyed by identity. Idle sessions are
// evicted lazily on access after the TTL; anonymous callers get a fresh
// unretained session so that no state leaks between them.
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	ttl      time.Duration
	sessions map[string]*entry
	now      func() time.Time
}

// NewManager creates a Manager. A non-positive ttl falls back to
// DefaultSessionTTL.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Get returns the session for identity, creating one if absent or
// expired. The empty identity always gets a new session.
func (m *Manager) Get(identity string) *Session {
	if identity == "" {
		return New(m.deps, "")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.pruneLocked(now)

	if e, ok := m.sessions[identity]; ok {
		e.lastSeen = now
		return e.session
	}

	s := New(m.deps, identity)
	m.sessions[identity] = &entry{session: s, lastSeen: now}
	return s
}

// Len reports the number of retained sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) pruneLocked(now time.Time) {
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
