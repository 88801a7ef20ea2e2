// Package formflow models a form submission session as an explicit state
// machine with a request-in-flight token, replacing the ad hoc guard-rail
// flag: a dialog may not be dismissed and a second submit may not start
// while a request is in flight.
package formflow

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateError
	StateSuccess
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateError:
		return "error"
	case StateSuccess:
		return "success"
	}
	return "unknown"
}

var (
	// ErrSubmitInFlight is returned by Begin while a submission is running.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	// ErrStaleToken is returned by Finish when the token does not belong
	// to the current in-flight submission.
	ErrStaleToken = errors.New("stale submission token")
)

// Session is one form's submission lifecycle. Safe for concurrent use:
// independent user actions are not mutually excluded elsewhere, so the
// session itself is the only gate against duplicate in-flight requests.
type Session struct {
	mu    sync.Mutex
	state State
	token string
}

func NewSession() *Session {
	return &Session{state: StateIdle}
}

// Begin starts a submission and returns its in-flight token. Starting
// while another submission is in flight fails; starting from error or
// success begins a fresh attempt.
func (s *Session) Begin() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return "", ErrSubmitInFlight
	}

	s.token = uuid.NewString()
	s.state = StateSubmitting
	return s.token, nil
}

// Finish completes the submission identified by token, moving the session
// to success or error according to result.
func (s *Session) Finish(token string, result error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateSubmitting || token != s.token {
		return ErrStaleToken
	}

	s.token = ""
	if result != nil {
		s.state = StateError
	} else {
		s.state = StateSuccess
	}
	return nil
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dismissible reports whether the owning dialog may be closed. Only an
// in-flight submission blocks dismissal.
func (s *Session) Dismissible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateSubmitting
}

// Reset returns a settled session to idle. Resetting mid-submission is
// refused for the same reason dismissal is blocked.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrSubmitInFlight
	}
	s.state = StateIdle
	return nil
}
