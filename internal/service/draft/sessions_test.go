package draft

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
)

func TestManagerReusesSessionPerContact(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	mgr := newSessionManager(svc, 30*time.Millisecond)
	ctx := context.Background()

	mgr.Type(ctx, "ada@uwaterloo.ca", "H")
	mgr.Type(ctx, "ada@uwaterloo.ca", "He")
	mgr.Type(ctx, "ada@uwaterloo.ca", "Hello Professor")

	time.Sleep(120 * time.Millisecond)

	saves := store.saves()
	if len(saves) != 1 {
		t.Fatalf("got %d saves, want 1", len(saves))
	}
	if saves[0] != "Hello Professor" {
		t.Errorf("saved %q, want the final content", saves[0])
	}
	if !mgr.Saved("ada@uwaterloo.ca") {
		t.Error("manager should report saved after the flush")
	}
}

func TestManagerSeedsFromStoredDraft(t *testing.T) {
	store := &fakeStore{drafts: map[string]model.Draft{
		"ada@uwaterloo.ca": {Email: "ada@uwaterloo.ca", Draft: "stored already"},
	}}
	svc := NewService(store, zap.NewNop())
	mgr := newSessionManager(svc, time.Hour)
	ctx := context.Background()

	mgr.Type(ctx, "ada@uwaterloo.ca", "stored already")
	content, dirty := mgr.Close("ada@uwaterloo.ca")
	if dirty || content != "" {
		t.Errorf("got (%q, %v), retyping the stored content should close clean", content, dirty)
	}
}

func TestManagerCloseReturnsUnsavedContent(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	mgr := newSessionManager(svc, time.Hour)
	ctx := context.Background()

	mgr.Type(ctx, "ada@uwaterloo.ca", "never persisted")
	content, dirty := mgr.Close("ada@uwaterloo.ca")
	if !dirty || content != "never persisted" {
		t.Errorf("got (%q, %v), want the buffered content", content, dirty)
	}
	if len(store.saves()) != 0 {
		t.Error("close must not force a write")
	}

	// The slot is freed; a fresh session starts clean.
	if !mgr.Saved("ada@uwaterloo.ca") {
		t.Error("closed contact should report saved")
	}
}

func TestManagerCloseUnknownContact(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, zap.NewNop())
	mgr := NewSessionManager(svc)

	content, dirty := mgr.Close("nobody@x.com")
	if dirty || content != "" {
		t.Errorf("got (%q, %v), want a clean no-op", content, dirty)
	}
}
