package diagram

import (
	"context"
	"sync"
)

// State is a render task's lifecycle state.
type State uint8

const (
	// StatePending means the render has not resolved yet.
	StatePending State = iota
	// StateRendered means the render succeeded.
	StateRendered
	// StateFailed means the render failed; the result carries the message.
	StateFailed
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRendered:
		return "rendered"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is a task's observable outcome: Pending until resolution, then
// either Rendered with output lines or Failed with an error message.
type Result struct {
	State State
	Lines []string
	Err   string
}

// Task is one asynchronous render. The widget that owns it polls Result and
// cancels on teardown; a cancelled task's late render resolves into nothing.
type Task struct {
	mu       sync.Mutex
	result   Result
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{
		result: Result{State: StatePending},
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Result returns the current outcome. Lines must not be mutated.
func (t *Task) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// State returns the current lifecycle state.
func (t *Task) State() State {
	return t.Result().State
}

// Done is closed when the task resolves, for hosts that repaint on
// completion instead of polling.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel stops the render. A task cancelled before resolution resolves as
// Failed; a resolved task is unchanged. Safe to call more than once.
func (t *Task) Cancel() {
	t.cancel()
	t.complete(Result{State: StateFailed, Err: "render canceled"})
}

// complete resolves the task exactly once.
func (t *Task) complete(r Result) {
	t.doneOnce.Do(func() {
		t.mu.Lock()
		t.result = r
		t.mu.Unlock()
		close(t.done)
	})
}

// failedTask returns an already-resolved failed task, for errors known
// before any goroutine starts.
func failedTask(msg string) *Task {
	t := newTask(func() {})
	t.complete(Result{State: StateFailed, Err: msg})
	return t
}
