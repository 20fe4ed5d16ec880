// Package spawn provides the two strategies that turn a launch request into a
// supervised process handle: direct spawn through os/exec and elevated spawn
// through a privilege-escalation helper.
package spawn

import (
	"context"
	"os"
	"time"

	"github.com/gamesup/gamesup/internal/proc"
)

// Spec carries the sanitized launch parameters for one spawn attempt.
// Sanitization happens at the validation boundary before a Spec is built.
type Spec struct {
	ID          string
	Executable  string
	Args        []string
	WorkDir     string
	Env         []string // merged over the supervisor environment
	Capture     bool
	Elevated    bool
	GraceWindow time.Duration
}

// ExitState is the native exit notification for a spawned process.
type ExitState struct {
	Code   *int
	Signal string
	// Quick marks a clean exit inside the grace window: the launcher shim of
	// a GUI title re-execing itself outside our process tree. The record goes
	// to detached, not closed.
	Quick bool
	// Hint marks an elevation-helper completion. It is a best-effort
	// termination signal only; polling stays authoritative.
	Hint bool
}

// Result is the outcome of a successful spawn. Exit delivers at most one
// ExitState and is then closed.
type Result struct {
	Handle proc.Handle
	Exit   <-chan ExitState
}

// OutputFunc receives captured child output. stream is "stdout" or "stderr".
type OutputFunc func(stream string, data []byte)

// Strategy produces a supervised process handle for a spec.
type Strategy interface {
	Spawn(ctx context.Context, spec Spec, out OutputFunc) (*Result, error)
}

// ForSpec selects the strategy for a spec.
func ForSpec(spec Spec) Strategy {
	if spec.Elevated {
		return &Elevated{}
	}
	return &Direct{}
}

// mergeEnv layers the per-launch overrides over the supervisor environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit as-is
	}
	return append(os.Environ(), extra...)
}
