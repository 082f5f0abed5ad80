// Package session keeps per-browser dashboard state in memory: the login flag and the loaded table.
package session

import (
	"fmt"
	"sync"
	"time"

	"custdash/domain/core"
	"custdash/domain/purchase"
	"custdash/internal"
	"custdash/internal/dataset"
)

// Session is a snapshot of one browser session.
type Session struct {
	ID            core.SessionID
	Authenticated bool
	Table         *purchase.Table
	Info          dataset.LoadInfo
	CreatedAt     time.Time
	LastSeen      time.Time
}

// HasDataset reports whether a table has been loaded.
func (s Session) HasDataset() bool { return s.Table != nil }

// Manager owns every live session. Sessions idle for longer than the TTL are dropped on access
// and by Sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[core.SessionID]*Session
	ttl      time.Duration
	now      func() time.Time
	logger   *internal.Logger
}

// NewManager creates an empty session manager
func NewManager(ttl time.Duration, logger *internal.Logger) *Manager {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Manager{
		sessions: make(map[core.SessionID]*Session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.With("Session"),
	}
}

// Create starts a new unauthenticated session and sweeps expired ones.
func (m *Manager) Create() Session {
	m.Sweep()

	now := m.now()
	s := &Session{ID: core.NewSessionID(), CreatedAt: now, LastSeen: now}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("created session %s", s.ID)
	return *s
}

// Get returns the session and marks it as seen.
func (m *Manager) Get(id core.SessionID) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return Session{}, err
	}
	s.LastSeen = m.now()
	return *s, nil
}

// Authenticate marks the session as logged in.
func (m *Manager) Authenticate(id core.SessionID) error {
	return m.update(id, func(s *Session) { s.Authenticated = true })
}

// SetTable replaces the session's table. Callers only invoke it after a successful load, so a
// failed upload leaves the previous table in place.
func (m *Manager) SetTable(id core.SessionID, table *purchase.Table, info dataset.LoadInfo) error {
	if table == nil {
		return fmt.Errorf("cannot attach a nil table to session %s", id)
	}
	return m.update(id, func(s *Session) {
		s.Table = table
		s.Info = info
	})
}

// Dataset returns the loaded table of an authenticated session.
func (m *Manager) Dataset(id core.SessionID) (*purchase.Table, dataset.LoadInfo, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, dataset.LoadInfo{}, err
	}
	if !s.Authenticated {
		return nil, dataset.LoadInfo{}, core.ErrUnauthorized
	}
	if s.Table == nil {
		return nil, dataset.LoadInfo{}, core.ErrNoDataset
	}
	return s.Table, s.Info, nil
}

// Delete forgets a session, if present.
func (m *Manager) Delete(id core.SessionID) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("expired %d idle sessions, %d active", removed, len(m.sessions))
	}
	return removed
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) update(id core.SessionID, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.lookup(id)
	if err != nil {
		return err
	}
	fn(s)
	s.LastSeen = m.now()
	return nil
}

// lookup must be called with mu held.
func (m *Manager) lookup(id core.SessionID) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, core.ErrNoSession
	}
	if m.expired(s) {
		delete(m.sessions, id)
		return nil, core.ErrNoSession
	}
	return s, nil
}

func (m *Manager) expired(s *Session) bool {
	return m.ttl > 0 && m.now().Sub(s.LastSeen) > m.ttl
}
