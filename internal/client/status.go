package client

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the user-visible state of a workflow run.
type Status int

const (
	// StatusWaiting - No run in progress, a video can be selected.
	StatusWaiting Status = iota
	// StatusConverting - Audio is being extracted locally.
	StatusConverting
	// StatusUploading - Audio is being sent to the server.
	StatusUploading
	// StatusGenerating - The server is transcribing the audio.
	StatusGenerating
	// StatusSuccess - The transcript is ready, completions may be requested.
	StatusSuccess
	// StatusError - A stage failed. Terminal until Reset.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusConverting:
		return "converting"
	case StatusUploading:
		return "uploading"
	case StatusGenerating:
		return "generating"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// IsTerminal returns true for success and error.
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Errors for invalid status transitions.
var (
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrWorkflowFailed    = errors.New("workflow is in error state, reset required")
)

// Lifecycle guards the status of a single workflow run.
// Thread-safe for concurrent access.
//
// Transitions:
//
//	waiting → converting → uploading → generating → success
//	   any non-terminal ──Fail()──→ error
//	   any ──Reset()──→ waiting
type Lifecycle struct {
	mu       sync.RWMutex
	status   Status
	onChange func(Status)
}

// NewLifecycle creates a lifecycle in the waiting status.
// onChange, if set, is called after every change with the new status.
func NewLifecycle(onChange func(Status)) *Lifecycle {
	return &Lifecycle{status: StatusWaiting, onChange: onChange}
}

// Status returns the current status.
func (l *Lifecycle) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Advance moves to the next status in the pipeline. to must be the direct successor.
func (l *Lifecycle) Advance(to Status) error {
	l.mu.Lock()
	from := l.status
	switch {
	case from == StatusError:
		l.mu.Unlock()
		return ErrWorkflowFailed
	case to != from+1 || to == StatusError:
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	l.status = to
	l.mu.Unlock()

	l.notify(to)
	return nil
}

// Fail moves to the error status.
// Returns false if the run already finished successfully or already failed.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	if l.status.IsTerminal() {
		l.mu.Unlock()
		return false
	}
	l.status = StatusError
	l.mu.Unlock()

	l.notify(StatusError)
	return true
}

// ForceFail moves to the error status from any status, including success.
// Used when a completion for a prepared video fails.
func (l *Lifecycle) ForceFail() {
	l.mu.Lock()
	changed := l.status != StatusError
	l.status = StatusError
	l.mu.Unlock()

	if changed {
		l.notify(StatusError)
	}
}

// Reset returns to the waiting status. It is the only way out of error.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	changed := l.status != StatusWaiting
	l.status = StatusWaiting
	l.mu.Unlock()

	if changed {
		l.notify(StatusWaiting)
	}
}

func (l *Lifecycle) notify(s Status) {
	if l.onChange != nil {
		l.onChange(s)
	}
}
