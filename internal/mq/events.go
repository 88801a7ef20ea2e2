package mq

import "time"

// Routing keys for email lifecycle events.
const (
	RoutingKeyEmailScheduled  = "email.scheduled"
	RoutingKeyEmailDispatched = "email.dispatched"
	RoutingKeyEmailCancelled  = "email.cancelled"
)

// EmailScheduledPayload is published after a PENDING row is inserted and
// its trigger is registered.
type EmailScheduledPayload struct {
	EventID   string    `json:"event_id"`
	EmailID   int       `json:"email_id"`
	TriggerID string    `json:"trigger_id"`
	Recipient string    `json:"recipient"`
	SendAt    time.Time `json:"send_at"`
}

// EmailDispatchedPayload is published when the external scheduler confirms
// a dispatch; the worker consumes it and marks the row COMPLETED.
type EmailDispatchedPayload struct {
	EventID   string    `json:"event_id"`
	TriggerID string    `json:"trigger_id"`
	SentAt    time.Time `json:"sent_at"`
}

// EmailCancelledPayload is published when a PENDING email is cancelled and
// its trigger released.
type EmailCancelledPayload struct {
	EventID   string `json:"event_id"`
	EmailID   int    `json:"email_id"`
	TriggerID string `json:"trigger_id"`
}
