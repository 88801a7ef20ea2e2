package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/service/draft"
)

type stubDraftStore struct {
	mu      sync.Mutex
	upserts []string
}

func (s *stubDraftStore) Upsert(ctx context.Context, email, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, content)
	return nil
}

func (s *stubDraftStore) FindByEmail(ctx context.Context, email string) (*model.Draft, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubDraftStore) ListAll(ctx context.Context) ([]model.Draft, error) {
	return nil, nil
}

func (s *stubDraftStore) saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

func newDraftRouter(store *stubDraftStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := draft.NewService(store, zap.NewNop())
	h := NewDraftHandler(svc, draft.NewSessionManager(svc), zap.NewNop())
	r := gin.New()
	r.POST("/drafts/:email/keystrokes", h.Keystroke)
	r.DELETE("/drafts/:email/session", h.CloseSession)
	return r
}

func TestKeystrokeBuffersWithoutWriting(t *testing.T) {
	store := &stubDraftStore{}
	r := newDraftRouter(store)

	raw, _ := json.Marshal(map[string]string{"draft": "Hello Prof"})
	req := httptest.NewRequest(http.MethodPost, "/drafts/ada@uwaterloo.ca/keystrokes", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if store.saves() != 0 {
		t.Error("a keystroke must not write through to the store")
	}
}

func TestCloseSessionReturnsUnsavedContent(t *testing.T) {
	store := &stubDraftStore{}
	r := newDraftRouter(store)

	raw, _ := json.Marshal(map[string]string{"draft": "never persisted"})
	req := httptest.NewRequest(http.MethodPost, "/drafts/ada@uwaterloo.ca/keystrokes", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodDelete, "/drafts/ada@uwaterloo.ca/session", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Dirty   bool   `json:"dirty"`
		Unsaved string `json:"unsaved"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Dirty || resp.Unsaved != "never persisted" {
		t.Errorf("resp %+v, want the unflushed buffer back", resp)
	}
}
