package proc

import (
	"errors"
	"fmt"
)

// Sentinel errors for launch and lifecycle operations. Callers classify with
// errors.Is; wrapped variants carry context.
var (
	// ErrAlreadyRunning is returned by Launch when the logical id is active.
	ErrAlreadyRunning = errors.New("process id already active")
	// ErrConcurrencyLimit is returned by Launch when the running count has
	// reached the configured maximum.
	ErrConcurrencyLimit = errors.New("concurrent process limit exceeded")
	// ErrUnknownProcess is returned for operations referencing an id that is
	// not (or no longer) in the registry.
	ErrUnknownProcess = errors.New("unknown process")
	// ErrElevationCancelled means the user dismissed the privilege prompt.
	// Distinct from ErrElevationFailed so callers can offer a retry UI.
	ErrElevationCancelled = errors.New("elevation cancelled by user")
	// ErrElevationFailed means the escalation mechanism itself errored.
	ErrElevationFailed = errors.New("elevation failed")
	// ErrTerminationTimeout means liveness retries were exhausted without a
	// confirmed exit signal; the process was finalized with unknown exit state.
	ErrTerminationTimeout = errors.New("termination timeout: liveness retries exhausted")
	// ErrShuttingDown is returned when an operation races engine shutdown.
	ErrShuttingDown = errors.New("supervisor shutting down")
)

// ValidationError reports a rejected launch parameter. The process was never
// spawned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// SpawnError means the OS refused to create the process.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// IsPreSpawn reports whether err belongs to the class of errors that reject a
// launch before a process exists (surfaced synchronously to the caller).
func IsPreSpawn(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var se *SpawnError
	if errors.As(err, &se) {
		return true
	}
	return errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrConcurrencyLimit) ||
		errors.Is(err, ErrElevationCancelled) ||
		errors.Is(err, ErrElevationFailed)
}
