package model

import "time"

// ContactStatus is the stage of a contact in the external document database.
type ContactStatus string

const (
	ContactStatusEmail     ContactStatus = "Email"   // in the backlog, not yet emailed
	ContactStatusStalled   ContactStatus = "Stalled" // parked, needs follow-up
	ContactStatusContacted ContactStatus = "Contacted"
)

// contactTransitions is the allowed stage graph. Contacts are created and
// mutated upstream; this system only requests transitions through the
// status side-channel.
var contactTransitions = map[ContactStatus][]ContactStatus{
	ContactStatusEmail:   {ContactStatusStalled, ContactStatusContacted},
	ContactStatusStalled: {ContactStatusEmail, ContactStatusContacted},
}

// CanTransition reports whether a contact may move from one stage to another.
func (s ContactStatus) CanTransition(to ContactStatus) bool {
	for _, next := range contactTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Contact is an outreach target sourced from the external document
// database. Read-only from this system's perspective.
type Contact struct {
	ID         string        `json:"id"`
	Email      string        `json:"email"`
	Name       string        `json:"name"`
	LabURL     string        `json:"labURL"`
	University University    `json:"university"`
	Status     ContactStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
}
