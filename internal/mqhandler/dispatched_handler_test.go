package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/mq"
	"sonic/internal/repository"
)

type fakeStore struct {
	email   *model.Email
	findErr error
	markErr error
	calls   int
	trigger string
	sentAt  time.Time
}

func (f *fakeStore) FindByTriggerID(ctx context.Context, triggerID string) (*model.Email, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.email != nil {
		return f.email, nil
	}
	return &model.Email{TriggerID: triggerID, Status: model.EmailStatusPending}, nil
}

func (f *fakeStore) MarkCompleted(ctx context.Context, triggerID string, sentAt time.Time) error {
	f.calls++
	f.trigger = triggerID
	f.sentAt = sentAt
	return f.markErr
}

type fakeGuard struct {
	first bool
}

func (f *fakeGuard) AcquireOnce(ctx context.Context, handler, triggerID string) bool {
	return f.first
}

type fakeSink struct {
	parked [][]byte
	causes []string
	err    error
}

func (f *fakeSink) PublishToDLQ(routingKey string, payload []byte, originalError string) error {
	f.parked = append(f.parked, payload)
	f.causes = append(f.causes, originalError)
	return f.err
}

func payload(t *testing.T, p mq.EmailDispatchedPayload) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}

func TestHandleMarksCompleted(t *testing.T) {
	store := &fakeStore{}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, &fakeSink{}, zap.NewNop())
	sentAt := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		EventID:   "evt-1",
		TriggerID: "trig-1",
		SentAt:    sentAt,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if store.calls != 1 || store.trigger != "trig-1" || !store.sentAt.Equal(sentAt) {
		t.Errorf("store called %d times with (%s, %v)", store.calls, store.trigger, store.sentAt)
	}
}

func TestHandleSkipsDuplicates(t *testing.T) {
	store := &fakeStore{}
	h := NewDispatchedHandler(store, &fakeGuard{first: false}, &fakeSink{}, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		TriggerID: "trig-1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if store.calls != 0 {
		t.Errorf("duplicate delivery reached the store %d times", store.calls)
	}
}

func TestHandleMissingRowIsAcked(t *testing.T) {
	store := &fakeStore{findErr: pgx.ErrNoRows}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, &fakeSink{}, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		TriggerID: "trig-gone",
	}))
	if err != nil {
		t.Error("confirmation for a cancelled row must not requeue")
	}
	if store.calls != 0 {
		t.Errorf("missing row reached MarkCompleted %d times", store.calls)
	}
}

func TestHandleSettledRowIsAcked(t *testing.T) {
	store := &fakeStore{email: &model.Email{TriggerID: "trig-1", Status: model.EmailStatusCompleted}}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, &fakeSink{}, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		TriggerID: "trig-1",
	}))
	if err != nil {
		t.Error("confirmation for a settled row must not requeue")
	}
	if store.calls != 0 {
		t.Errorf("settled row reached MarkCompleted %d times", store.calls)
	}
}

func TestHandleStaleConfirmationIsAcked(t *testing.T) {
	store := &fakeStore{markErr: repository.ErrNotPending}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, &fakeSink{}, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		TriggerID: "trig-gone",
	}))
	if err != nil {
		t.Error("stale confirmation must not requeue")
	}
}

func TestHandleStoreFailureRequeues(t *testing.T) {
	store := &fakeStore{markErr: errors.New("db down")}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, &fakeSink{}, zap.NewNop())

	err := h.Handle(context.Background(), payload(t, mq.EmailDispatchedPayload{
		TriggerID: "trig-1",
	}))
	if err == nil {
		t.Error("transient store failure should be returned for a nack")
	}
}

func TestHandleBadPayloadIsDeadLettered(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	h := NewDispatchedHandler(store, &fakeGuard{first: true}, sink, zap.NewNop())

	if err := h.Handle(context.Background(), json.RawMessage(`{not json`)); err != nil {
		t.Error("unparseable payload must be acked, not requeued")
	}
	if err := h.Handle(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Error("payload without trigger_id must be acked")
	}
	if store.calls != 0 {
		t.Errorf("bad payloads reached the store %d times", store.calls)
	}
	if len(sink.parked) != 2 {
		t.Fatalf("expected 2 dead-lettered messages, got %d", len(sink.parked))
	}
	if string(sink.parked[0]) != `{not json` {
		t.Errorf("dead letter body altered: %s", sink.parked[0])
	}
	if sink.causes[1] != "missing trigger_id" {
		t.Errorf("unexpected cause: %s", sink.causes[1])
	}
}

func TestHandleDLQFailureStillAcks(t *testing.T) {
	sink := &fakeSink{err: errors.New("mq down")}
	h := NewDispatchedHandler(&fakeStore{}, &fakeGuard{first: true}, sink, zap.NewNop())

	if err := h.Handle(context.Background(), json.RawMessage(`{not json`)); err != nil {
		t.Error("a DLQ failure must not requeue the poisoned message")
	}
}
