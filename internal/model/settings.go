package model

// Settings is the singleton configuration row keyed by the account email.
// Template and Subject both carry placeholder syntax; they are loaded
// explicitly and passed as a snapshot into rendering and validation rather
// than fetched ambiently.
type Settings struct {
	Email    string `json:"email"`
	Template string `json:"template"`
	Subject  string `json:"subject"`
}
