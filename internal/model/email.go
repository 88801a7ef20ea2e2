package model

import "time"

// EmailStatus is the delivery stage of an outgoing email.
type EmailStatus string

const (
	EmailStatusPending   EmailStatus = "PENDING"
	EmailStatusCompleted EmailStatus = "COMPLETED"
	EmailStatusError     EmailStatus = "ERROR"
)

// emailTransitions is the full transition table. COMPLETED and ERROR are
// terminal; a PENDING row may also be deleted outright on cancel, which is
// not a transition.
var emailTransitions = map[EmailStatus][]EmailStatus{
	EmailStatusPending: {EmailStatusCompleted, EmailStatusError},
}

// CanTransition reports whether an email may move from one status to another.
func (s EmailStatus) CanTransition(to EmailStatus) bool {
	for _, next := range emailTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Mutable reports whether the row may still be edited or cancelled.
func (s EmailStatus) Mutable() bool {
	return s == EmailStatusPending
}

// Email is an outgoing message row.
//
// Invariant: Status == PENDING implies SendAt is set and TriggerID is
// non-empty; the external scheduler holds a job keyed by TriggerID that is
// used for update and cancel. For COMPLETED rows SendAt reads as the actual
// send time.
type Email struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Subject    string      `json:"subject"`
	Content    string      `json:"content"`
	Status     EmailStatus `json:"status"`
	TriggerID  string      `json:"trigger_id"`
	CreatedAt  time.Time   `json:"created_at"`
	SendAt     *time.Time  `json:"send_at,omitempty"`
	SentAt     *time.Time  `json:"sent_at,omitempty"`
	LabURL     string      `json:"lab_url"`
	University University  `json:"university"`
}
