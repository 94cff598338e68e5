package server

import (
	"crypto/rand"
	"errors"
	"os"
	"sync"

	"termrelay/history"
)

var (
	ErrSessionNotFound = errors.New("server: session not found")
)

// Options configures sessions created by a Manager.
type Options struct {
	// Shell is the command started on each session's PTY. Defaults to
	// $SHELL, then /bin/sh.
	Shell string

	// History receives completed scrollback lines when set.
	History *history.Store

	// Console suppresses escape sequences on every attached client,
	// for terminals that cannot interpret them.
	Console bool

	// Observer receives flush metrics when set.
	Observer FlushObserver
}

// Manager tracks named sessions and coordinates create-or-attach.
type Manager struct {
	opts     Options
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(opts Options) *Manager {
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	return &Manager{opts: opts, sessions: make(map[string]*Session)}
}

// Attach returns the session with the given name, creating it at the
// requested size if it does not exist. The second result reports
// whether a new session was started.
func (m *Manager) Attach(name string, cols, rows int) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[name]; ok {
		return session, false, nil
	}

	var id [16]byte
	if _, err := rand.Read(id[:]); err != nil {
		return nil, false, err
	}
	session, err := newSession(name, id, m.opts.Shell, cols, rows, m.opts)
	if err != nil {
		return nil, false, err
	}
	m.sessions[name] = session
	return session, true, nil
}

func (m *Manager) Lookup(name string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[name]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *Manager) Close(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[name]; ok {
		session.Close()
		delete(m.sessions, name)
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, session := range m.sessions {
		session.Close()
		delete(m.sessions, name)
	}
}

func (m *Manager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
