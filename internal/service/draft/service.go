package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"sonic/internal/debounce"
	"sonic/internal/model"
	"sonic/pkg/metrics"
)

// FlushDelay is how long a session waits after the last keystroke before
// persisting the buffer.
const FlushDelay = 1500 * time.Millisecond

// Store persists draft content keyed by contact email.
type Store interface {
	Upsert(ctx context.Context, email, content string) error
	FindByEmail(ctx context.Context, email string) (*model.Draft, error)
	ListAll(ctx context.Context) ([]model.Draft, error)
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Save persists draft content immediately, bypassing any session debounce.
func (s *Service) Save(ctx context.Context, email, content string) error {
	if err := s.store.Upsert(ctx, email, content); err != nil {
		metrics.IncrementDraftFlush("error")
		s.logger.Error("failed to save draft", zap.String("email", email), zap.Error(err))
		return err
	}
	metrics.IncrementDraftFlush("success")
	return nil
}

// Load returns the stored draft for a contact, if any.
func (s *Service) Load(ctx context.Context, email string) (*model.Draft, error) {
	return s.store.FindByEmail(ctx, email)
}

// List returns every stored draft.
func (s *Service) List(ctx context.Context) ([]model.Draft, error) {
	return s.store.ListAll(ctx)
}

// Session buffers edits for one contact and flushes them after a quiet
// period. Each keystroke replaces the single pending flush rather than
// queueing another one, so a burst of typing produces one write bearing
// the final content.
type Session struct {
	svc   *Service
	email string
	delay time.Duration

	mu    sync.Mutex
	buf   string
	saved string
	task  *debounce.Task
}

// NewSession opens an autosave session for a contact. existing seeds the
// buffer with previously stored content so Saved reports true until the
// first edit.
func (s *Service) NewSession(email, existing string) *Session {
	return s.newSession(email, existing, FlushDelay)
}

func (s *Service) newSession(email, existing string, delay time.Duration) *Session {
	sess := &Session{
		svc:   s,
		email: email,
		delay: delay,
		buf:   existing,
		saved: existing,
	}
	sess.task = debounce.New(sess.flush)
	return sess
}

// Type records the current editor content and reschedules the pending
// flush. A flush already running is not interrupted; only the next one
// moves.
func (sess *Session) Type(content string) {
	sess.mu.Lock()
	sess.buf = content
	sess.mu.Unlock()
	sess.task.Schedule(sess.delay)
}

func (sess *Session) flush() {
	sess.mu.Lock()
	snapshot := sess.buf
	sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.svc.Save(ctx, sess.email, snapshot); err != nil {
		return
	}

	sess.mu.Lock()
	// Keystrokes that landed during the write keep the session dirty;
	// their own rescheduled flush picks them up.
	if sess.buf == snapshot {
		sess.saved = snapshot
	}
	sess.mu.Unlock()
}

// Saved reports whether the persisted content matches the buffer.
func (sess *Session) Saved() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.buf == sess.saved && !sess.task.Pending()
}

// Close stops the pending flush. If the buffer holds content that never
// reached the store, it is returned so the caller can hand it back to
// the user instead of dropping it.
func (sess *Session) Close() (unsaved string, dirty bool) {
	sess.task.Cancel()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.buf != sess.saved {
		return sess.buf, true
	}
	return "", false
}
