package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sonic/internal/formflow"
	"sonic/internal/model"
	"sonic/internal/scheduler"
	"sonic/internal/service/email"
)

type stubStore struct {
	emails map[string]*model.Email
}

func (s *stubStore) Create(ctx context.Context, e *model.Email) (int, error) { return 1, nil }
func (s *stubStore) FindByTriggerID(ctx context.Context, triggerID string) (*model.Email, error) {
	e, ok := s.emails[triggerID]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return e, nil
}
func (s *stubStore) CountByStatus(ctx context.Context, status model.EmailStatus) (int, error) {
	return 0, nil
}
func (s *stubStore) UpdateContent(ctx context.Context, triggerID, recipient, subject, content string) error {
	return nil
}
func (s *stubStore) DeleteByTriggerID(ctx context.Context, triggerID string) error { return nil }

type stubTrigger struct{}

func (stubTrigger) Register(ctx context.Context, job scheduler.Job) (string, error) {
	return "trig-99", nil
}
func (stubTrigger) DispatchNow(ctx context.Context, job scheduler.Job) error { return nil }
func (stubTrigger) Update(ctx context.Context, triggerID, recipient, subject, body string) error {
	return nil
}
func (stubTrigger) Cancel(ctx context.Context, triggerID string) error { return nil }

type stubPublisher struct{}

func (stubPublisher) Publish(routingKey string, payload any) error { return nil }

func newAutomationRouter(store *stubStore) *gin.Engine {
	r, _ := newAutomationRouterWithFlow(store)
	return r
}

func newAutomationRouterWithFlow(store *stubStore) (*gin.Engine, *formflow.Session) {
	gin.SetMode(gin.TestMode)
	svc := email.NewService(store, stubTrigger{}, stubPublisher{}, zap.NewNop())
	flow := formflow.NewSession()
	h := NewAutomationHandler(svc, flow, zap.NewNop())
	r := gin.New()
	r.POST("/automation", h.Handle)
	return r, flow
}

func post(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/automation", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAutomationCreate(t *testing.T) {
	r := newAutomationRouter(&stubStore{})
	sendAt := time.Now().Add(10 * time.Minute)

	w := post(t, r, map[string]any{
		"action":     "CREATE",
		"name":       "Ada Lovelace",
		"email":      "ada@uwaterloo.ca",
		"subject":    "Prospective student",
		"content":    "Hello",
		"send_at":    sendAt.Format(time.RFC3339),
		"university": string(model.UniversityWaterloo),
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp struct {
		Success   bool   `json:"success"`
		TriggerID string `json:"trigger_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.TriggerID != "trig-99" {
		t.Errorf("resp %+v", resp)
	}
}

func TestAutomationCreateTooSoonIsBadRequest(t *testing.T) {
	r := newAutomationRouter(&stubStore{})
	sendAt := time.Now().Add(time.Minute)

	w := post(t, r, map[string]any{
		"action":     "CREATE",
		"name":       "Ada Lovelace",
		"email":      "ada@uwaterloo.ca",
		"subject":    "Prospective student",
		"content":    "Hello",
		"send_at":    sendAt.Format(time.RFC3339),
		"university": string(model.UniversityWaterloo),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400; body %s", w.Code, w.Body.String())
	}
}

func TestAutomationUnresolvedSubjectIsBadRequest(t *testing.T) {
	r := newAutomationRouter(&stubStore{})

	w := post(t, r, map[string]any{
		"action":     "SEND",
		"name":       "Ada Lovelace",
		"email":      "ada@uwaterloo.ca",
		"subject":    "Interested in the {LAB} group",
		"content":    "Hello",
		"university": string(model.UniversityWaterloo),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400; body %s", w.Code, w.Body.String())
	}
}

func TestAutomationUpdateCompletedIsConflict(t *testing.T) {
	store := &stubStore{emails: map[string]*model.Email{
		"trig-1": {ID: 1, TriggerID: "trig-1", Status: model.EmailStatusCompleted},
	}}
	r := newAutomationRouter(store)

	w := post(t, r, map[string]any{
		"action":     "UPDATE",
		"trigger_id": "trig-1",
		"email":      "ada@uwaterloo.ca",
		"subject":    "s",
		"content":    "c",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409; body %s", w.Code, w.Body.String())
	}
}

func TestAutomationRejectsConcurrentSubmission(t *testing.T) {
	r, flow := newAutomationRouterWithFlow(&stubStore{})
	sendAt := time.Now().Add(10 * time.Minute)

	// Hold the form session open as a submission in flight would.
	token, err := flow.Begin()
	if err != nil {
		t.Fatal(err)
	}

	body := map[string]any{
		"action":     "CREATE",
		"name":       "Ada Lovelace",
		"email":      "ada@uwaterloo.ca",
		"subject":    "Prospective student",
		"content":    "Hello",
		"send_at":    sendAt.Format(time.RFC3339),
		"university": string(model.UniversityWaterloo),
	}
	if w := post(t, r, body); w.Code != http.StatusConflict {
		t.Fatalf("status %d, want 409; body %s", w.Code, w.Body.String())
	}

	// Once the first submission settles, the next one goes through.
	if err := flow.Finish(token, nil); err != nil {
		t.Fatal(err)
	}
	if w := post(t, r, body); w.Code != http.StatusOK {
		t.Fatalf("status %d after settle, want 200; body %s", w.Code, w.Body.String())
	}
}

func TestAutomationUnknownActionIsBadRequest(t *testing.T) {
	r := newAutomationRouter(&stubStore{})

	w := post(t, r, map[string]any{"action": "EXPLODE"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
}
