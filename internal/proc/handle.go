package proc

import (
	"os"
	"sync"
	"sync/atomic"
)

// Handle abstracts over a real OS process handle and the synthetic handle
// fabricated for elevated launches, where the escalation helper never hands
// back a live *os.Process. Exactly one variant applies to a record for its
// whole lifetime.
type Handle interface {
	// PID returns the OS pid for real handles, or the fabricated (negative)
	// pid for synthetic handles that have not discovered their real pid yet.
	PID() int
	// Synthetic reports whether this handle was fabricated.
	Synthetic() bool
	// Signal delivers the platform termination signal. force selects the
	// non-catchable variant (SIGKILL / TerminateProcess / taskkill /F).
	Signal(force bool) error
	// Alive performs a cheap single-process liveness check.
	Alive() bool
}

// RealHandle wraps a process we spawned directly and can signal natively.
type RealHandle struct {
	Proc *os.Process
	Pid  int
}

func (h *RealHandle) PID() int        { return h.Pid }
func (h *RealHandle) Synthetic() bool { return false }

func (h *RealHandle) Signal(force bool) error {
	return signalGroup(h.Pid, force)
}

func (h *RealHandle) Alive() bool {
	return pidAlive(h.Pid)
}

// syntheticSeq produces fabricated pids. They are negative and strictly
// decreasing so they can never collide with a real OS pid.
var syntheticSeq atomic.Int64

// SyntheticHandle stands in for an elevated process. The real pid, when the
// process table probe discovers one, is recorded here; kill shells out to the
// platform kill command because we never owned the process.
type SyntheticHandle struct {
	Executable string

	mu      sync.Mutex
	fakePID int
	realPID int
}

// NewSyntheticHandle fabricates a handle for the given target executable.
func NewSyntheticHandle(executable string) *SyntheticHandle {
	return &SyntheticHandle{
		Executable: executable,
		fakePID:    int(-(syntheticSeq.Add(1) + 1000)),
	}
}

func (h *SyntheticHandle) Synthetic() bool { return true }

func (h *SyntheticHandle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.realPID > 0 {
		return h.realPID
	}
	return h.fakePID
}

// RealPID returns the discovered real pid, or 0 when discovery has not
// succeeded yet.
func (h *SyntheticHandle) RealPID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.realPID
}

// SetRealPID records the pid discovered by the process-table probe. The first
// discovery wins.
func (h *SyntheticHandle) SetRealPID(pid int) {
	h.mu.Lock()
	if h.realPID == 0 && pid > 0 {
		h.realPID = pid
	}
	h.mu.Unlock()
}

func (h *SyntheticHandle) Signal(force bool) error {
	pid := h.RealPID()
	if pid > 0 {
		return shellKillPID(pid, force)
	}
	// Best effort: no real pid was ever discovered, kill by image name.
	return shellKillName(h.Executable, force)
}

func (h *SyntheticHandle) Alive() bool {
	pid := h.RealPID()
	if pid > 0 {
		return pidAlive(pid)
	}
	return false
}
