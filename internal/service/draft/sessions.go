package draft

import (
	"context"
	"sync"
	"time"
)

// SessionManager keeps at most one autosave session per contact so the
// keystroke endpoint can feed the same debounced buffer across requests.
type SessionManager struct {
	svc   *Service
	delay time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(svc *Service) *SessionManager {
	return newSessionManager(svc, FlushDelay)
}

func newSessionManager(svc *Service, delay time.Duration) *SessionManager {
	return &SessionManager{
		svc:      svc,
		delay:    delay,
		sessions: make(map[string]*Session),
	}
}

// Type routes editor content into the contact's session, opening one
// seeded with the stored draft on the first keystroke.
func (m *SessionManager) Type(ctx context.Context, email, content string) {
	m.session(ctx, email).Type(content)
}

// Saved reports whether the contact's session has anything left to flush.
// A contact with no open session has nothing pending.
func (m *SessionManager) Saved(email string) bool {
	m.mu.Lock()
	sess := m.sessions[email]
	m.mu.Unlock()
	if sess == nil {
		return true
	}
	return sess.Saved()
}

// Close ends the contact's session and returns any content that never
// reached the store.
func (m *SessionManager) Close(email string) (unsaved string, dirty bool) {
	m.mu.Lock()
	sess := m.sessions[email]
	delete(m.sessions, email)
	m.mu.Unlock()
	if sess == nil {
		return "", false
	}
	return sess.Close()
}

func (m *SessionManager) session(ctx context.Context, email string) *Session {
	m.mu.Lock()
	if sess := m.sessions[email]; sess != nil {
		m.mu.Unlock()
		return sess
	}
	m.mu.Unlock()

	// Seed outside the lock; the store read can block. A contact with no
	// stored draft starts from an empty buffer.
	existing := ""
	if d, err := m.svc.Load(ctx, email); err == nil && d != nil {
		existing = d.Draft
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess := m.sessions[email]; sess != nil {
		return sess
	}
	sess := m.svc.newSession(email, existing, m.delay)
	m.sessions[email] = sess
	return sess
}
