package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"sonic/internal/model"
	"sonic/internal/mq"
	"sonic/internal/repository"
	"sonic/internal/util"
	"sonic/pkg/metrics"
)

// EmailStore is the slice of the email repository the handler needs.
type EmailStore interface {
	FindByTriggerID(ctx context.Context, triggerID string) (*model.Email, error)
	MarkCompleted(ctx context.Context, triggerID string, sentAt time.Time) error
}

// DedupeGuard filters duplicate deliveries. Satisfied by util.Deduper.
type DedupeGuard interface {
	AcquireOnce(ctx context.Context, handler, triggerID string) bool
}

var _ DedupeGuard = (*util.Deduper)(nil)

// DeadLetterSink parks messages that can never be processed. Satisfied by
// mq.Publisher.
type DeadLetterSink interface {
	PublishToDLQ(routingKey string, payload []byte, originalError string) error
}

var _ DeadLetterSink = (*mq.Publisher)(nil)

// DispatchedHandler consumes email.dispatched events and moves the matching
// PENDING row to COMPLETED.
type DispatchedHandler struct {
	store   EmailStore
	deduper DedupeGuard
	dlq     DeadLetterSink
	logger  *zap.Logger
}

func NewDispatchedHandler(store EmailStore, deduper DedupeGuard, dlq DeadLetterSink, logger *zap.Logger) *DispatchedHandler {
	return &DispatchedHandler{
		store:   store,
		deduper: deduper,
		dlq:     dlq,
		logger:  logger,
	}
}

func (h *DispatchedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload mq.EmailDispatchedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid EmailDispatchedPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		// A payload that never parses would requeue forever.
		h.deadLetter(raw, err.Error())
		return nil
	}
	if payload.TriggerID == "" {
		h.logger.Error("EmailDispatchedPayload without trigger_id, sending to DLQ",
			zap.String("event_id", payload.EventID),
		)
		h.deadLetter(raw, "missing trigger_id")
		return nil
	}

	if !h.deduper.AcquireOnce(ctx, "dispatched", payload.TriggerID) {
		h.logger.Info("Duplicated event, skip",
			zap.String("trigger_id", payload.TriggerID),
		)
		return nil
	}

	e, err := h.store.FindByTriggerID(ctx, payload.TriggerID)
	if err != nil {
		if repository.IsNoRows(err) {
			// The row was cancelled before the confirmation arrived.
			h.logger.Info("No row for dispatch confirmation, skip",
				zap.String("trigger_id", payload.TriggerID),
			)
			metrics.IncrementEmailDispatched("stale")
			return nil
		}
		metrics.IncrementEmailDispatched("error")
		return fmt.Errorf("load email: %w", err)
	}
	if !e.Status.CanTransition(model.EmailStatusCompleted) {
		h.logger.Info("Email cannot move to COMPLETED, skip",
			zap.String("trigger_id", payload.TriggerID),
			zap.String("status", string(e.Status)),
		)
		metrics.IncrementEmailDispatched("stale")
		return nil
	}

	sentAt := payload.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	if err := h.store.MarkCompleted(ctx, payload.TriggerID, sentAt); err != nil {
		if errors.Is(err, repository.ErrNotPending) {
			// The row settled between the load and the update.
			h.logger.Info("No pending row for dispatch confirmation, skip",
				zap.String("trigger_id", payload.TriggerID),
			)
			metrics.IncrementEmailDispatched("stale")
			return nil
		}
		metrics.IncrementEmailDispatched("error")
		return fmt.Errorf("mark completed: %w", err)
	}

	metrics.IncrementEmailDispatched("success")
	h.logger.Info("Email marked completed",
		zap.String("trigger_id", payload.TriggerID),
		zap.Time("sent_at", sentAt),
	)
	return nil
}

// deadLetter parks an unprocessable message. A DLQ failure is logged and
// the message dropped; requeueing it would loop forever.
func (h *DispatchedHandler) deadLetter(raw json.RawMessage, cause string) {
	if err := h.dlq.PublishToDLQ(mq.RoutingKeyEmailDispatched, raw, cause); err != nil {
		h.logger.Error("Failed to dead-letter message",
			zap.String("cause", cause),
			zap.Error(err),
		)
	}
}
