package model

import "time"

// Draft is per-contact scratch content for the custom paragraph of an
// email, keyed by the contact's address. It persists independently of any
// email row and is only ever overwritten, never deleted.
type Draft struct {
	Email     string    `json:"email"`
	Draft     string    `json:"draft"`
	UpdatedAt time.Time `json:"updated_at"`
}
