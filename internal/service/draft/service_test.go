package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
)

type fakeStore struct {
	mu      sync.Mutex
	upserts []string
	err     error
	drafts  map[string]model.Draft
}

func (f *fakeStore) Upsert(ctx context.Context, email, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, content)
	return nil
}

func (f *fakeStore) FindByEmail(ctx context.Context, email string) (*model.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return &d, nil
}

func (f *fakeStore) ListAll(ctx context.Context) ([]model.Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Draft{}
	for _, d := range f.drafts {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeStore) saves() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.upserts...)
}

func TestBurstOfTypingFlushesOnce(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	sess := svc.newSession("ada@uwaterloo.ca", "", 30*time.Millisecond)

	sess.Type("H")
	sess.Type("He")
	sess.Type("Hello Professor")

	time.Sleep(120 * time.Millisecond)

	saves := store.saves()
	if len(saves) != 1 {
		t.Fatalf("got %d saves, want 1", len(saves))
	}
	if saves[0] != "Hello Professor" {
		t.Errorf("saved %q, want the final content", saves[0])
	}
	if !sess.Saved() {
		t.Error("session should report saved after the flush")
	}
}

func TestTypingAfterQuietPeriodFlushesAgain(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	sess := svc.newSession("ada@uwaterloo.ca", "", 20*time.Millisecond)

	sess.Type("first")
	time.Sleep(80 * time.Millisecond)
	sess.Type("second")
	time.Sleep(80 * time.Millisecond)

	saves := store.saves()
	if len(saves) != 2 {
		t.Fatalf("got %d saves, want 2", len(saves))
	}
	if saves[0] != "first" || saves[1] != "second" {
		t.Errorf("saved %v, want [first second]", saves)
	}
}

func TestCloseReturnsUnsavedContent(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	sess := svc.newSession("ada@uwaterloo.ca", "", time.Hour)

	sess.Type("never persisted")
	content, dirty := sess.Close()
	if !dirty {
		t.Fatal("expected dirty close with a pending flush")
	}
	if content != "never persisted" {
		t.Errorf("got %q, want the buffered content", content)
	}
	if len(store.saves()) != 0 {
		t.Error("close must not force a write")
	}
}

func TestCloseCleanSession(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	sess := svc.newSession("ada@uwaterloo.ca", "stored already", time.Hour)

	if !sess.Saved() {
		t.Error("session seeded with stored content should start saved")
	}
	content, dirty := sess.Close()
	if dirty || content != "" {
		t.Errorf("got (%q, %v), want clean close", content, dirty)
	}
}

func TestFailedFlushKeepsSessionDirty(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	svc := NewService(store, zap.NewNop())
	sess := svc.newSession("ada@uwaterloo.ca", "", 20*time.Millisecond)

	sess.Type("lost?")
	time.Sleep(80 * time.Millisecond)

	if sess.Saved() {
		t.Error("failed flush must not mark the session saved")
	}
	content, dirty := sess.Close()
	if !dirty || content != "lost?" {
		t.Errorf("got (%q, %v), want the unsaved buffer back", content, dirty)
	}
}
