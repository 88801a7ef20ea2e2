package formflow

import (
	"errors"
	"testing"
)

func TestBeginBlocksSecondSubmit(t *testing.T) {
	s := NewSession()

	token, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if token == "" {
		t.Fatal("Begin returned empty token")
	}

	if _, err := s.Begin(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("second Begin: got %v, want ErrSubmitInFlight", err)
	}

	if s.Dismissible() {
		t.Error("session should not be dismissible mid-submission")
	}
}

func TestFinishSuccessAndError(t *testing.T) {
	s := NewSession()

	token, _ := s.Begin()
	if err := s.Finish(token, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if s.State() != StateSuccess {
		t.Errorf("state = %v, want success", s.State())
	}
	if !s.Dismissible() {
		t.Error("settled session should be dismissible")
	}

	token, err := s.Begin()
	if err != nil {
		t.Fatalf("Begin after success: %v", err)
	}
	if err := s.Finish(token, errors.New("upstream failed")); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if s.State() != StateError {
		t.Errorf("state = %v, want error", s.State())
	}

	// Error state requires explicit user-initiated re-attempt; no
	// automatic retry happens, but a fresh Begin is allowed.
	if _, err := s.Begin(); err != nil {
		t.Fatalf("Begin after error: %v", err)
	}
}

func TestFinishStaleToken(t *testing.T) {
	s := NewSession()

	token, _ := s.Begin()
	if err := s.Finish("not-the-token", nil); !errors.Is(err, ErrStaleToken) {
		t.Fatalf("got %v, want ErrStaleToken", err)
	}

	if err := s.Finish(token, nil); err != nil {
		t.Fatalf("real token should still finish: %v", err)
	}

	if err := s.Finish(token, nil); !errors.Is(err, ErrStaleToken) {
		t.Fatalf("double finish: got %v, want ErrStaleToken", err)
	}
}

func TestResetRefusedMidSubmission(t *testing.T) {
	s := NewSession()

	token, _ := s.Begin()
	if err := s.Reset(); !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("got %v, want ErrSubmitInFlight", err)
	}

	_ = s.Finish(token, nil)
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %v, want idle", s.State())
	}
}
