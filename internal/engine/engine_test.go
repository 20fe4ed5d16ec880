package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gamesup/gamesup/internal/cache"
	"github.com/gamesup/gamesup/internal/proc"
	"github.com/gamesup/gamesup/internal/spawn"
)

func requireUnix(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests require sh/sleep on Unix-like systems")
	}
}

func testEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := New(opts, log, nil, cache.NewLRU(16, time.Minute))
	t.Cleanup(e.Shutdown)
	return e
}

// fastOpts keeps the monitoring machinery quick enough for tests.
func fastOpts() Options {
	return Options{
		MonitorInterval:  50 * time.Millisecond,
		DetachedInterval: 30 * time.Millisecond,
		SweepInterval:    time.Hour,
		GraceWindow:      50 * time.Millisecond,
		MaxRetries:       2,
	}
}

type recorder struct {
	mu     sync.Mutex
	events []proc.Event
}

func (r *recorder) listen(e proc.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) count(kind proc.EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) waitFor(t *testing.T, kind proc.EventKind, timeout time.Duration) proc.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		for _, e := range r.events {
			if e.Kind == kind {
				r.mu.Unlock()
				return e
			}
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("event %s never delivered", kind)
	return proc.Event{}
}

func (r *recorder) sawTransition(from, to proc.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == proc.EventStatusChange && e.Prev == from && e.Curr == to {
			return true
		}
	}
	return false
}

func TestLaunchAndNativeExit(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	snap, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "g1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 0.2"},
		Listener:   rec.listen,
	})
	require.NoError(t, err)
	require.Equal(t, "g1", snap.ID)
	require.Greater(t, snap.PID, 0)
	require.True(t, e.IsRunning("g1"))

	rec.waitFor(t, proc.EventLaunched, time.Second)
	closed := rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.NotNil(t, closed.ExitCode)
	require.Equal(t, 0, *closed.ExitCode)
	require.Greater(t, closed.Duration, time.Duration(0))

	require.True(t, rec.sawTransition(proc.StatusLaunching, proc.StatusRunning))
	require.True(t, rec.sawTransition(proc.StatusRunning, proc.StatusClosed))

	require.False(t, e.IsRunning("g1"))
	require.Nil(t, e.Snapshot("g1"))
	require.Empty(t, e.AllSnapshots())
	require.Equal(t, 1, rec.count(proc.EventClosed))
}

func TestQuickExitDetachesThenCloses(t *testing.T) {
	requireUnix(t)
	opts := fastOpts()
	opts.GraceWindow = 2 * time.Second
	e := testEngine(t, opts)
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "quick",
		Executable: "/bin/true",
		Listener:   rec.listen,
	})
	require.NoError(t, err)

	closed := rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.True(t, rec.sawTransition(proc.StatusRunning, proc.StatusDetached),
		"clean quick exit must detach, not close directly")
	require.True(t, rec.sawTransition(proc.StatusDetached, proc.StatusClosed))
	require.Nil(t, closed.ExitCode, "poll-detected exit has unknown code")
	require.Equal(t, 1, rec.count(proc.EventClosed))
	require.False(t, e.IsRunning("quick"))
}

func TestPerLaunchGraceWindowOverride(t *testing.T) {
	requireUnix(t)
	opts := fastOpts()
	opts.GraceWindow = 2 * time.Second
	e := testEngine(t, opts)
	rec := &recorder{}

	// With a tiny override, the same fast clean exit is a real termination.
	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:          "strict",
		Executable:  "/bin/true",
		GraceWindow: time.Nanosecond,
		Listener:    rec.listen,
	})
	require.NoError(t, err)

	closed := rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.False(t, rec.sawTransition(proc.StatusRunning, proc.StatusDetached))
	require.NotNil(t, closed.ExitCode)
	require.Equal(t, 0, *closed.ExitCode)
}

func TestKillGraceful(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "victim",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
		Listener:   rec.listen,
	})
	require.NoError(t, err)

	require.True(t, e.Kill("victim", false))
	closed := rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.True(t, rec.sawTransition(proc.StatusRunning, proc.StatusClosing))
	require.True(t, rec.sawTransition(proc.StatusClosing, proc.StatusClosed))
	require.NotEmpty(t, closed.Signal)
	require.Equal(t, 1, rec.count(proc.EventClosed))

	// The record is gone; further kills report unknown.
	require.False(t, e.Kill("victim", false))
	require.False(t, e.Kill("never-existed", true))
}

func TestKillForce(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "victim",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
		Listener:   rec.listen,
	})
	require.NoError(t, err)
	require.True(t, e.Kill("victim", true))
	rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.False(t, e.IsRunning("victim"))
}

func TestDoubleKillSingleTerminalEvent(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "victim",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
		Listener:   rec.listen,
	})
	require.NoError(t, err)

	e.Kill("victim", false)
	e.Kill("victim", true) // racing second kill while the first is in flight
	rec.waitFor(t, proc.EventClosed, 5*time.Second)
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, 1, rec.count(proc.EventClosed))
}

func TestAlreadyRunningAndIDReuse(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "g1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 0.2"},
		Listener:   rec.listen,
	})
	require.NoError(t, err)

	_, err = e.Launch(context.Background(), LaunchSpec{
		ID:         "g1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 0.2"},
	})
	require.ErrorIs(t, err, proc.ErrAlreadyRunning)

	rec.waitFor(t, proc.EventClosed, 5*time.Second)

	// After finalization the id is free again.
	_, err = e.Launch(context.Background(), LaunchSpec{
		ID:          "g1",
		Executable:  "/bin/true",
		GraceWindow: time.Nanosecond,
	})
	require.NoError(t, err)
}

func TestConcurrencyLimit(t *testing.T) {
	requireUnix(t)
	opts := fastOpts()
	opts.MaxConcurrent = 2
	e := testEngine(t, opts)

	for i := 0; i < 2; i++ {
		_, err := e.Launch(context.Background(), LaunchSpec{
			ID:         fmt.Sprintf("g%d", i),
			Executable: "/bin/sh",
			Args:       []string{"-c", "sleep 30"},
		})
		require.NoError(t, err)
	}
	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "overflow",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
	})
	require.ErrorIs(t, err, proc.ErrConcurrencyLimit)
	require.False(t, e.IsRunning("overflow"))
}

func TestValidationRejectsBeforeSpawn(t *testing.T) {
	e := testEngine(t, fastOpts())
	cases := []LaunchSpec{
		{ID: "", Executable: "/bin/true"},
		{ID: "bad id", Executable: "/bin/true"},
		{ID: "g1", Executable: ""},
		{ID: "g1", Executable: "/bin/../etc/true"},
		{ID: "g1", Executable: "/bin/true", Args: []string{"a;b"}},
		{ID: "g1", Executable: "/bin/true", Env: []string{"NOEQUALS"}},
		{ID: "g1", Executable: "/bin/true", Env: []string{"GAMESUP_X=1"}},
	}
	for _, ls := range cases {
		_, err := e.Launch(context.Background(), ls)
		var ve *proc.ValidationError
		require.True(t, errors.As(err, &ve), "spec %+v: got %v", ls, err)
	}
	require.Empty(t, e.AllSnapshots())
}

func TestSpawnFailureEmitsErrorEvent(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "ghost",
		Executable: "/no/such/binary-xyz",
		Listener:   rec.listen,
	})
	require.Error(t, err)
	var se *proc.SpawnError
	require.True(t, errors.As(err, &se))

	ev := rec.waitFor(t, proc.EventError, time.Second)
	require.Equal(t, "spawn", ev.Phase)
	require.False(t, e.IsRunning("ghost"))
	require.Empty(t, e.AllSnapshots())
}

func TestPollFinalizesVanishedProcess(t *testing.T) {
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	// A handle-less elevated record whose target never shows up in the
	// process table: retries exhaust and it closes with an unknown exit.
	r := proc.NewRecord("vanished", "/opt/none/ghost-binary", nil, nil, "")
	r.Listener = rec.listen
	r.SetHandle(proc.NewSyntheticHandle("ghost-binary"))
	require.NoError(t, e.reg.Insert(r, 0))
	_, ok := r.Transition(proc.StatusRunning)
	require.True(t, ok)

	closed := rec.waitFor(t, proc.EventClosed, 10*time.Second)
	require.Nil(t, closed.ExitCode)
	require.Empty(t, closed.Signal)
	require.False(t, e.IsRunning("vanished"))
}

func TestKillAndShutdownBeforeHandlePublished(t *testing.T) {
	e := testEngine(t, fastOpts())

	// The record is registered before the spawn completes, so a kill or a
	// shutdown can observe it with no handle yet. Neither may panic; kill
	// has nothing to signal and reports false.
	r := proc.NewRecord("pending", "/opt/games/slow-launcher", nil, nil, "")
	require.NoError(t, e.reg.Insert(r, 0))

	require.False(t, e.Kill("pending", false))
	require.False(t, e.Kill("pending", true))
	require.Equal(t, proc.StatusLaunching, r.Status())

	e.Shutdown()
	require.Empty(t, e.AllSnapshots())
}

func TestElevatedHelperHintFinalizesOnce(t *testing.T) {
	// Long intervals so the helper hint, not the poll, drives finalization.
	e := testEngine(t, Options{
		MonitorInterval:  time.Hour,
		DetachedInterval: time.Hour,
		SweepInterval:    time.Hour,
	})
	rec := &recorder{}

	r := proc.NewRecord("elevated", "/opt/none/ghost-helper", nil, nil, "")
	r.Listener = rec.listen
	r.SetHandle(proc.NewSyntheticHandle("ghost-helper"))
	require.NoError(t, e.reg.Insert(r, 0))
	_, ok := r.Transition(proc.StatusRunning)
	require.True(t, ok)

	// Helper completion with no native exit state: the record's target is
	// absent from the process table, so the hint confirms and finalizes.
	exit := make(chan spawn.ExitState, 1)
	exit <- spawn.ExitState{Hint: true}
	close(exit)
	e.wg.Add(1)
	e.watchExit(r, exit)

	closed := rec.waitFor(t, proc.EventClosed, 5*time.Second)
	require.Nil(t, closed.ExitCode, "hint-confirmed exit has unknown code")
	require.Equal(t, 1, rec.count(proc.EventClosed))
	require.Zero(t, rec.count(proc.EventError))
	require.False(t, e.IsRunning("elevated"))
	require.Nil(t, e.Snapshot("elevated"))
}

func TestSnapshotMemoization(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "g1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
	})
	require.NoError(t, err)

	s1 := e.Snapshot("g1")
	require.NotNil(t, s1)
	require.Equal(t, "running", s1.Status)
	s2 := e.Snapshot("g1")
	require.NotNil(t, s2)
	require.Equal(t, s1.PID, s2.PID)

	all := e.AllSnapshots()
	require.Contains(t, all, "g1")
	require.Nil(t, e.Snapshot("unknown"))
}

func TestShutdownIdempotentAndRejectsLaunches(t *testing.T) {
	requireUnix(t)
	e := New(fastOpts(), slog.New(slog.NewTextHandler(io.Discard, nil)), nil, cache.Nop{})

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:         "g1",
		Executable: "/bin/sh",
		Args:       []string{"-c", "sleep 30"},
	})
	require.NoError(t, err)

	e.Shutdown()
	e.Shutdown() // second call is a no-op
	require.Empty(t, e.AllSnapshots())

	_, err = e.Launch(context.Background(), LaunchSpec{ID: "late", Executable: "/bin/true"})
	require.ErrorIs(t, err, proc.ErrShuttingDown)
}

func TestCapturedOutputEvents(t *testing.T) {
	requireUnix(t)
	e := testEngine(t, fastOpts())
	rec := &recorder{}

	_, err := e.Launch(context.Background(), LaunchSpec{
		ID:          "chatty",
		Executable:  "/bin/sh",
		Args:        []string{"-c", "echo hello; sleep 0.2"},
		Capture:     true,
		GraceWindow: time.Nanosecond,
		Listener:    rec.listen,
	})
	require.NoError(t, err)

	out := rec.waitFor(t, proc.EventOutput, 5*time.Second)
	require.Equal(t, "stdout", out.Stream)
	require.Equal(t, "hello", string(out.Data))
	rec.waitFor(t, proc.EventClosed, 5*time.Second)
}
