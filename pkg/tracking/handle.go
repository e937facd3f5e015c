package tracking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/unklstewy/skytrack/pkg/astrotime"
)

// Status is the state of a tracker job.
type Status int

const (
	// StatusIdle is both the initial state and successful completion
	StatusIdle Status = iota

	// StatusSlewing means the job is handshaking or moving onto the target
	StatusSlewing

	// StatusTracking means the mount is following the target
	StatusTracking

	// StatusFailure means an exchange with the controller failed
	StatusFailure

	// StatusAborted means the job was stopped by Abort
	StatusAborted
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusSlewing:
		return "Slewing"
	case StatusTracking:
		return "Tracking"
	case StatusFailure:
		return "Failure"
	case StatusAborted:
		return "Aborted"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for candidate := StatusIdle; candidate <= StatusAborted; candidate++ {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// InProgress reports whether s is a running state.
func (s Status) InProgress() bool {
	return s == StatusSlewing || s == StatusTracking
}

// JobKind identifies what a job is doing.
type JobKind string

const (
	JobMove      JobKind = "move"
	JobTrack     JobKind = "track"
	JobSteering  JobKind = "steering"
	JobConfigure JobKind = "configure"
)

// Handle is the caller's view of one submitted job. A new Handle is created
// for every accepted submission; the background job is the only writer
// apart from Abort.
type Handle struct {
	mu     sync.Mutex
	status Status
	err    error
	frames int

	kind     JobKind
	target   string
	begin    astrotime.DateTime
	started  time.Time
	duration time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newHandle(parent context.Context, kind JobKind, target string, duration time.Duration) *Handle {
	ctx, cancel := context.WithCancel(parent)
	now := time.Now()
	return &Handle{
		status:   StatusSlewing,
		kind:     kind,
		target:   target,
		begin:    astrotime.FromTime(now.UTC()),
		started:  now,
		duration: duration,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Status returns the current status.
func (h *Handle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// InProgress reports whether the job is still running.
func (h *Handle) InProgress() bool {
	return h.Status().InProgress()
}

// Begin returns the UTC time the job was accepted.
func (h *Handle) Begin() astrotime.DateTime { return h.begin }

// Kind returns the job kind.
func (h *Handle) Kind() JobKind { return h.kind }

// Target returns a label for what the job points at.
func (h *Handle) Target() string { return h.target }

// Err returns the error that moved the job to StatusFailure, if any.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// Frames returns the number of motion frames acknowledged so far.
func (h *Handle) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// Progress returns the elapsed fraction of a timed job in [0, 1]. Jobs
// without a duration report 0 while running and 1 once finished.
func (h *Handle) Progress() float64 {
	if h.duration <= 0 {
		if h.InProgress() {
			return 0
		}
		return 1
	}
	p := float64(time.Since(h.started)) / float64(h.duration)
	if p > 1 || !h.InProgress() {
		return 1
	}
	return p
}

// Done is closed when the background job has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job exits or ctx is done and returns the final
// status.
func (h *Handle) Wait(ctx context.Context) (Status, error) {
	select {
	case <-h.done:
		return h.Status(), nil
	case <-ctx.Done():
		return h.Status(), ctx.Err()
	}
}

// transition moves from one running state to another. It fails if the
// job has already left from.
func (h *Handle) transition(from, to Status) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status != from {
		return false
	}
	h.status = to
	return true
}

// complete sets a terminal status unless the job already left the running
// states (for example because it was aborted).
func (h *Handle) complete(to Status, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.status.InProgress() {
		return false
	}
	h.status = to
	h.err = err
	return true
}

func (h *Handle) countFrame() {
	h.mu.Lock()
	h.frames++
	h.mu.Unlock()
}

// abort stops a tracking job. Only StatusTracking may be interrupted.
func (h *Handle) abort() bool {
	h.mu.Lock()
	if h.status != StatusTracking {
		h.mu.Unlock()
		return false
	}
	h.status = StatusAborted
	h.mu.Unlock()

	h.cancel()
	return true
}

// aborted reports whether the job should stop before its next frame.
func (h *Handle) aborted() bool {
	return h.ctx.Err() != nil || h.Status() == StatusAborted
}

func (h *Handle) finish() {
	h.cancel()
	close(h.done)
}
