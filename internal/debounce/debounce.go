// Package debounce provides a single-slot cancellable scheduled task: at
// most one pending invocation exists at a time, and scheduling again
// cancels and replaces it. It is the explicit rendition of a trailing
// debounce timer, independent of any surrounding framework.
package debounce

import (
	"sync"
	"time"
)

// Task wraps a function with a single reschedulable timer slot.
type Task struct {
	mu    sync.Mutex
	fn    func()
	timer *time.Timer
}

func New(fn func()) *Task {
	return &Task{fn: fn}
}

// Schedule arranges for the function to run after d, cancelling any
// previously pending run. The function fires on its own goroutine.
func (t *Task) Schedule(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		t.timer = nil
		t.mu.Unlock()
		t.fn()
	})
}

// Cancel stops any pending run. It reports whether a run was pending; a
// run that has already started cannot be cancelled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer == nil {
		return false
	}
	stopped := t.timer.Stop()
	t.timer = nil
	return stopped
}

// Pending reports whether a run is currently scheduled.
func (t *Task) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}
