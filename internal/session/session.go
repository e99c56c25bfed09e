// Package session keeps the single local login session of the storefront client.
package session

import (
	"fmt"
	"log/slog"
	"sync"
)

// Session is a logged-in user as seen by the client.
type Session struct {
	Token    string `json:"token"`
	Identity string `json:"identity"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether admin affordances should be displayed.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

// Backend persists the session between runs.
type Backend interface {
	Load() (*Session, error)
	Save(s *Session) error
	Delete() error
}

// Listener is called with the new session, or nil after Clear.
type Listener func(s *Session)

// Store holds at most one Session.
type Store struct {
	mu        sync.RWMutex
	current   *Session
	backend   Backend
	listeners []Listener
	logger    *slog.Logger
}

// NewStore creates a store and restores a previously saved session from backend.
func NewStore(backend Backend, logger *slog.Logger) (*Store, error) {
	s, err := backend.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &Store{current: s, backend: backend, logger: logger.With("component", "session")}, nil
}

// Get returns a copy of the current session.
func (st *Store) Get() (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.current == nil {
		return Session{}, false
	}
	return *st.current, true
}

// Token returns the bearer credential of the current session.
func (st *Store) Token() (string, bool) {
	s, ok := st.Get()
	return s.Token, ok
}

// Set replaces the current session and persists it.
func (st *Store) Set(s Session) error {
	if s.Role == "" {
		s.Role = RoleUser
	}
	st.mu.Lock()
	if err := st.backend.Save(&s); err != nil {
		st.mu.Unlock()
		return fmt.Errorf("save session: %w", err)
	}
	st.current = &s
	listeners := st.listeners
	st.mu.Unlock()

	st.logger.Debug("Session set", "identity", s.Identity, "role", s.Role)
	cp := s
	st.notify(listeners, &cp)
	return nil
}

// Clear drops the session. Clearing an empty store is a no-op and notifies nobody.
func (st *Store) Clear() error {
	st.mu.Lock()
	if st.current == nil {
		st.mu.Unlock()
		return nil
	}
	st.current = nil
	err := st.backend.Delete()
	listeners := st.listeners
	st.mu.Unlock()

	st.logger.Debug("Session cleared")
	st.notify(listeners, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// OnChange registers fn to run after every Set and effective Clear.
// Listeners run on the caller's goroutine, outside the store lock.
func (st *Store) OnChange(fn Listener) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}

func (st *Store) notify(listeners []Listener, s *Session) {
	for _, fn := range listeners {
		fn(s)
	}
}
