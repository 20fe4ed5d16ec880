package proc

import (
	"sync"
	"time"
)

// Record is the authoritative state for one supervised logical process.
// Launch parameters are immutable after creation; the mutable fields are
// guarded by the internal mutex, and terminal-field mutation additionally
// serializes through the registry's per-id guard. The handle is published
// once, after the spawn succeeds, and is nil until then.
type Record struct {
	ID         string
	Executable string
	Args       []string
	WorkDir    string
	Env        []string

	// GraceWindow is the quick-exit window within which a clean exit is
	// treated as a GUI detach rather than a real termination.
	GraceWindow time.Duration

	Listener Listener

	mu         sync.Mutex
	handle     Handle
	status     Status
	startTime  time.Time
	endTime    time.Time
	exitCode   *int
	signal     string
	retryCount int
	lastSeenAt time.Time
}

// NewRecord creates a record in the launching state.
func NewRecord(id, executable string, args, env []string, workDir string) *Record {
	return &Record{
		ID:         id,
		Executable: executable,
		Args:       args,
		Env:        env,
		WorkDir:    workDir,
		status:     StatusLaunching,
		startTime:  time.Now(),
		lastSeenAt: time.Now(),
	}
}

// SetHandle publishes the spawned process handle. The record is visible in
// the registry before the spawn completes, so readers must go through
// Handle and tolerate nil.
func (r *Record) SetHandle(h Handle) {
	r.mu.Lock()
	r.handle = h
	r.mu.Unlock()
}

// Handle returns the published handle, or nil while the spawn is in flight.
func (r *Record) Handle() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// Status returns the current lifecycle state.
func (r *Record) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Transition moves the record to next if legal, returning the previous state
// and whether the transition was applied. Retry bookkeeping is cleared on
// every transition; it is only meaningful while running.
func (r *Record) Transition(next Status) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.status
	if !prev.CanTransition(next) {
		return prev, false
	}
	r.status = next
	r.retryCount = 0
	if next.Terminal() {
		r.endTime = time.Now()
	}
	return prev, true
}

// SetExit records the terminal exit details. code may be nil for an unknown
// exit detected by polling.
func (r *Record) SetExit(code *int, signal string) {
	r.mu.Lock()
	r.exitCode = code
	r.signal = signal
	r.mu.Unlock()
}

// IncRetry bumps the liveness retry counter and returns the new value.
func (r *Record) IncRetry() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryCount++
	return r.retryCount
}

// RetryCount returns the current liveness retry counter.
func (r *Record) RetryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCount
}

// ConfirmAlive clears the retry counter and refreshes lastSeenAt.
func (r *Record) ConfirmAlive() {
	r.mu.Lock()
	r.retryCount = 0
	r.lastSeenAt = time.Now()
	r.mu.Unlock()
}

// ForgiveRetries clears the retry counter when the last confirmed liveness is
// within the stability window. Used by the low-frequency sweep to avoid
// compounding transient probe false negatives.
func (r *Record) ForgiveRetries(window time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.retryCount > 0 && time.Since(r.lastSeenAt) < window {
		r.retryCount = 0
		return true
	}
	return false
}

// StartTime returns when the record was created.
func (r *Record) StartTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startTime
}

// Snapshot is the public-facing view of a record. retryCount is deliberately
// excluded.
type Snapshot struct {
	ID         string     `json:"id"`
	PID        int        `json:"pid"`
	Synthetic  bool       `json:"synthetic"`
	Executable string     `json:"executable"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	ExitCode   *int       `json:"exit_code,omitempty"`
	Signal     string     `json:"signal,omitempty"`
}

// Snapshot returns a copy of the externally visible state.
func (r *Record) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{
		ID:         r.ID,
		Executable: r.Executable,
		Status:     r.status.String(),
		StartedAt:  r.startTime,
		ExitCode:   r.exitCode,
		Signal:     r.signal,
	}
	if r.handle != nil {
		s.PID = r.handle.PID()
		s.Synthetic = r.handle.Synthetic()
	}
	if !r.endTime.IsZero() {
		end := r.endTime
		s.EndedAt = &end
	}
	return s
}

// Emit delivers an event to the record's listener, if any.
func (r *Record) Emit(e Event) {
	if r.Listener != nil {
		e.ID = r.ID
		r.Listener(e)
	}
}
