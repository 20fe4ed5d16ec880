package spawn

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/gamesup/gamesup/internal/proc"
	"github.com/gamesup/gamesup/internal/probe"
)

const (
	// cancelCheckWindow is how long the helper is watched for an immediate
	// cancellation or failure before the launch is reported as successful.
	// UAC/polkit prompts that the user dismisses fail within this window.
	cancelCheckWindow = 1500 * time.Millisecond

	discoverInterval = 500 * time.Millisecond
	discoverTimeout  = 15 * time.Second
	// discoverSlack widens the creation-time window around the launch call
	// when matching process-table instances of the target executable.
	discoverSlack = 2 * time.Second
)

// Elevated shells out through a privilege-escalation helper. The helper
// returns only aggregated output, never a live handle, so a synthetic handle
// is fabricated immediately and the real pid is discovered asynchronously
// from the process table.
type Elevated struct{}

func (e *Elevated) Spawn(ctx context.Context, spec Spec, _ OutputFunc) (*Result, error) {
	cmd := elevateCommand(spec)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", proc.ErrElevationFailed, err)
	}
	launchedAt := time.Now()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	// The helper blocks for the lifetime of the elevated process on
	// POSIX-family systems, so an early return almost always means the prompt
	// was dismissed or the mechanism failed.
	helperDone := false
	select {
	case err := <-done:
		if err != nil {
			return nil, classifyElevationErr(err, stderr.String())
		}
		helperDone = true
	case <-time.After(cancelCheckWindow):
	case <-ctx.Done():
		return nil, &proc.SpawnError{Executable: spec.Executable, Err: ctx.Err()}
	}

	h := proc.NewSyntheticHandle(spec.Executable)
	go discoverLoop(h, spec.Executable, launchedAt)

	exitCh := make(chan ExitState, 1)
	if helperDone {
		exitCh <- ExitState{Hint: true}
		close(exitCh)
	} else {
		go func() {
			defer close(exitCh)
			<-done
			// Helper completion is a termination hint only; the monitoring
			// loop stays authoritative for elevation backends that do not
			// block for the child's lifetime.
			exitCh <- ExitState{Hint: true}
		}()
	}

	return &Result{Handle: h, Exit: exitCh}, nil
}

// discoverLoop retries process-table discovery of the real pid until it
// succeeds or gives up. Best effort; kill falls back to name-based
// termination when no pid was ever found.
func discoverLoop(h *proc.SyntheticHandle, executable string, launchedAt time.Time) {
	deadline := time.Now().Add(discoverTimeout)
	for time.Now().Before(deadline) {
		if pid := probe.DiscoverPID(executable, launchedAt, discoverSlack); pid > 0 {
			h.SetRealPID(pid)
			return
		}
		time.Sleep(discoverInterval)
	}
}
