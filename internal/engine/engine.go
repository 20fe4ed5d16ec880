// Package engine is the process supervision core: it launches processes
// through the spawn strategies, keeps authoritative per-id state in the
// registry, detects termination through the native waiter and the polling
// monitor, and guarantees exactly one terminal event per launched id.
package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gamesup/gamesup/internal/audit"
	"github.com/gamesup/gamesup/internal/cache"
	"github.com/gamesup/gamesup/internal/logger"
	"github.com/gamesup/gamesup/internal/metrics"
	"github.com/gamesup/gamesup/internal/proc"
	"github.com/gamesup/gamesup/internal/registry"
	"github.com/gamesup/gamesup/internal/spawn"
	"github.com/gamesup/gamesup/internal/validate"
)

// Defaults for the supervision tunables.
const (
	DefaultMonitorInterval  = 5 * time.Second
	DefaultDetachedInterval = 2 * time.Second
	DefaultSweepInterval    = 30 * time.Second
	DefaultStabilityWindow  = 60 * time.Second
	DefaultSpawnTimeout     = 10 * time.Second
	DefaultKillWait         = 5 * time.Second
	DefaultMaxRetries       = 5
)

// Options configures an Engine. Zero values select the defaults above;
// MaxConcurrent zero means unlimited.
type Options struct {
	MonitorInterval  time.Duration
	DetachedInterval time.Duration
	SweepInterval    time.Duration
	StabilityWindow  time.Duration
	GraceWindow      time.Duration
	SpawnTimeout     time.Duration
	KillWait         time.Duration
	MaxRetries       int
	MaxConcurrent    int
	Capture          logger.CaptureConfig
}

func (o *Options) applyDefaults() {
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = DefaultMonitorInterval
	}
	if o.DetachedInterval <= 0 {
		o.DetachedInterval = DefaultDetachedInterval
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = DefaultSweepInterval
	}
	if o.StabilityWindow <= 0 {
		o.StabilityWindow = DefaultStabilityWindow
	}
	if o.GraceWindow <= 0 {
		o.GraceWindow = spawn.DefaultGraceWindow
	}
	if o.SpawnTimeout <= 0 {
		o.SpawnTimeout = DefaultSpawnTimeout
	}
	if o.KillWait <= 0 {
		o.KillWait = DefaultKillWait
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
}

// LaunchSpec is one launch request. Listener receives this id's lifecycle
// events; GraceWindow overrides the engine default when > 0.
type LaunchSpec struct {
	ID          string
	Executable  string
	Args        []string
	Env         []string
	WorkDir     string
	Elevated    bool
	Capture     bool
	GraceWindow time.Duration
	Listener    proc.Listener
}

type captureFiles struct {
	out io.WriteCloser
	err io.WriteCloser
}

type Engine struct {
	opts  Options
	log   *slog.Logger
	aud   *audit.Logger
	cache cache.Cache
	reg   *registry.Registry

	capMu    sync.Mutex
	captures map[string]captureFiles

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	closing  atomic.Bool
}

// New builds an engine and starts its monitoring scheduler.
func New(opts Options, log *slog.Logger, aud *audit.Logger, c cache.Cache) *Engine {
	opts.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	if aud == nil {
		aud = audit.New(log)
	}
	if c == nil {
		c = cache.Nop{}
	}
	e := &Engine{
		opts:     opts,
		log:      log,
		aud:      aud,
		cache:    c,
		reg:      registry.New(),
		captures: make(map[string]captureFiles),
		stop:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.runScheduler()
	return e
}

// Launch validates, spawns, registers, and begins supervising a process.
// Pre-spawn failures are returned synchronously; everything after a
// successful spawn is reported through events.
func (e *Engine) Launch(ctx context.Context, ls LaunchSpec) (proc.Snapshot, error) {
	if e.closing.Load() {
		return proc.Snapshot{}, proc.ErrShuttingDown
	}
	if err := validate.ID(ls.ID); err != nil {
		metrics.IncLaunchFailure("validation")
		return proc.Snapshot{}, err
	}
	exe, err := validate.ExecutablePath(ls.Executable)
	if err != nil {
		metrics.IncLaunchFailure("validation")
		return proc.Snapshot{}, err
	}
	args, err := validate.Arguments(ls.Args)
	if err != nil {
		metrics.IncLaunchFailure("validation")
		return proc.Snapshot{}, err
	}
	env, err := validate.Environment(ls.Env)
	if err != nil {
		metrics.IncLaunchFailure("validation")
		return proc.Snapshot{}, err
	}

	grace := ls.GraceWindow
	if grace <= 0 {
		grace = e.opts.GraceWindow
	}
	rec := proc.NewRecord(ls.ID, exe, args, env, ls.WorkDir)
	rec.GraceWindow = grace
	rec.Listener = ls.Listener

	if err := e.reg.Insert(rec, e.opts.MaxConcurrent); err != nil {
		metrics.IncLaunchFailure(failureKind(err))
		e.aud.Log(audit.KindLaunch, false, audit.Event{ProcessID: ls.ID, Elevated: ls.Elevated,
			Details: map[string]string{"error": err.Error()}})
		return proc.Snapshot{}, err
	}
	metrics.SetSupervised(e.reg.Len())

	sspec := spawn.Spec{
		ID:          ls.ID,
		Executable:  exe,
		Args:        args,
		WorkDir:     ls.WorkDir,
		Env:         env,
		Capture:     ls.Capture,
		Elevated:    ls.Elevated,
		GraceWindow: grace,
	}

	spawnCtx, cancel := context.WithTimeout(ctx, e.opts.SpawnTimeout)
	defer cancel()

	res, err := spawn.ForSpec(sspec).Spawn(spawnCtx, sspec, e.outputFunc(rec, ls.Capture))
	if err != nil {
		// Spawn attempt failed: the only path into the error state.
		e.reg.WithLock(rec.ID, func() {
			if prev, ok := rec.Transition(proc.StatusError); ok {
				metrics.IncTransition(prev.String(), proc.StatusError.String())
			}
			e.reg.Remove(rec.ID)
		})
		metrics.SetSupervised(e.reg.Len())
		e.closeCapture(rec.ID)
		metrics.IncLaunchFailure(failureKind(err))
		e.aud.Log(audit.KindLaunch, false, audit.Event{ProcessID: ls.ID, Elevated: ls.Elevated,
			Details: map[string]string{"error": err.Error()}})
		rec.Emit(proc.Event{Kind: proc.EventError, Phase: "spawn", Err: err})
		return proc.Snapshot{}, err
	}

	rec.SetHandle(res.Handle)

	e.transition(rec, proc.StatusRunning)
	rec.Emit(proc.Event{Kind: proc.EventLaunched})

	strategy := "direct"
	if ls.Elevated {
		strategy = "elevated"
		e.aud.Log(audit.KindAdminExec, true, audit.Event{
			ProcessID: ls.ID, PID: res.Handle.PID(), Elevated: true,
			Details: map[string]string{"executable": exe},
		})
	}
	metrics.IncLaunch(strategy)
	e.aud.Log(audit.KindLaunch, true, audit.Event{ProcessID: ls.ID, PID: res.Handle.PID(), Elevated: ls.Elevated})
	e.log.Info("process launched", "id", ls.ID, "pid", res.Handle.PID(), "elevated", ls.Elevated)

	e.wg.Add(1)
	go e.watchExit(rec, res.Exit)

	return rec.Snapshot(), nil
}

// Kill requests termination. Returns false when id is unknown (including
// already-finalized ids) or when the spawn is still in flight and there is
// no handle to signal yet. A second kill while the first is in flight is a
// no-op beyond re-signaling; the guard ensures a single terminal event.
func (e *Engine) Kill(id string, force bool) bool {
	rec := e.reg.Get(id)
	if rec == nil {
		return false
	}
	h := rec.Handle()
	if h == nil {
		e.log.Debug("kill refused, spawn still in flight", "id", id)
		return false
	}
	metrics.IncKill(force)

	e.transition(rec, proc.StatusClosing)

	if err := h.Signal(force); err != nil {
		// One forceful retry before reporting failure.
		if err2 := h.Signal(true); err2 != nil {
			e.log.Warn("kill signal delivery failed", "id", id, "error", err2)
			e.aud.Log(audit.KindKill, false, audit.Event{ProcessID: id, PID: h.PID(),
				Details: map[string]string{"error": err2.Error()}})
			return false
		}
	}
	e.aud.Log(audit.KindKill, true, audit.Event{ProcessID: id, PID: h.PID()})

	// Escalate after the kill wait if the exit has not been confirmed; the
	// normal finalization path still owns the terminal event.
	if !force {
		e.wg.Add(1)
		go e.escalateKill(rec)
	}
	return true
}

func (e *Engine) escalateKill(rec *proc.Record) {
	defer e.wg.Done()
	select {
	case <-time.After(e.opts.KillWait):
	case <-e.stop:
		return
	}
	if rec.Status().Terminal() || e.reg.Get(rec.ID) == nil {
		return
	}
	h := rec.Handle()
	if h == nil {
		return
	}
	e.log.Warn("graceful kill unconfirmed, escalating", "id", rec.ID)
	if err := h.Signal(true); err != nil {
		rec.Emit(proc.Event{Kind: proc.EventError, Phase: "termination", Err: proc.ErrTerminationTimeout})
	}
}

// IsRunning reports whether id refers to a live (non-finalized) record.
func (e *Engine) IsRunning(id string) bool {
	rec := e.reg.Get(id)
	return rec != nil && !rec.Status().Terminal()
}

// Snapshot returns the current view of id, or nil when unknown. Snapshots are
// memoized through the cache boundary; a miss falls through to the registry.
func (e *Engine) Snapshot(id string) *proc.Snapshot {
	if s, ok := e.cache.Get(id); ok {
		return &s
	}
	rec := e.reg.Get(id)
	if rec == nil {
		return nil
	}
	s := rec.Snapshot()
	e.cache.Set(id, s, 0)
	return &s
}

// AllSnapshots returns the current view of every supervised record.
func (e *Engine) AllSnapshots() map[string]proc.Snapshot {
	out := make(map[string]proc.Snapshot)
	for _, rec := range e.reg.All() {
		out[rec.ID] = rec.Snapshot()
	}
	return out
}

// Shutdown force-kills every active record, waits briefly for finalization,
// and stops the scheduler. Idempotent.
func (e *Engine) Shutdown() {
	if !e.closing.CompareAndSwap(false, true) {
		return
	}
	for _, rec := range e.reg.All() {
		if h := rec.Handle(); h != nil {
			_ = h.Signal(true)
		}
	}
	deadline := time.Now().Add(2 * e.opts.DetachedInterval)
	for e.reg.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	// Finalize stragglers so no id disappears silently.
	for _, rec := range e.reg.All() {
		e.finalize(rec, "shutdown", nil, "")
	}
	e.stopOnce.Do(func() { close(e.stop) })
	e.wg.Wait()
}

// transition applies a legal state change under the per-id guard and emits
// the status-change event outside it.
func (e *Engine) transition(rec *proc.Record, next proc.Status) bool {
	var prev proc.Status
	var ok bool
	e.reg.WithLock(rec.ID, func() {
		prev, ok = rec.Transition(next)
	})
	if !ok {
		return false
	}
	metrics.IncTransition(prev.String(), next.String())
	rec.Emit(proc.Event{Kind: proc.EventStatusChange, Prev: prev, Curr: next})
	return true
}

// outputFunc builds the capture callback: events plus optional rotating
// files via the logger package.
func (e *Engine) outputFunc(rec *proc.Record, capture bool) spawn.OutputFunc {
	if !capture {
		return nil
	}
	var files captureFiles
	if e.opts.Capture.Enabled() {
		out, errW, err := e.opts.Capture.Writers(rec.ID)
		if err != nil {
			e.log.Warn("capture writers unavailable", "id", rec.ID, "error", err)
		} else {
			files = captureFiles{out: out, err: errW}
			e.capMu.Lock()
			e.captures[rec.ID] = files
			e.capMu.Unlock()
		}
	}
	return func(stream string, data []byte) {
		rec.Emit(proc.Event{Kind: proc.EventOutput, Stream: stream, Data: data})
		w := files.out
		if stream == "stderr" {
			w = files.err
		}
		if w != nil {
			_, _ = w.Write(append(data, '\n'))
		}
	}
}

func (e *Engine) closeCapture(id string) {
	e.capMu.Lock()
	files, ok := e.captures[id]
	if ok {
		delete(e.captures, id)
	}
	e.capMu.Unlock()
	if files.out != nil {
		_ = files.out.Close()
	}
	if files.err != nil {
		_ = files.err.Close()
	}
}

func failureKind(err error) string {
	var ve *proc.ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, proc.ErrAlreadyRunning):
		return "already_running"
	case errors.Is(err, proc.ErrConcurrencyLimit):
		return "concurrency_limit"
	case errors.Is(err, proc.ErrElevationCancelled):
		return "elevation_cancelled"
	case errors.Is(err, proc.ErrElevationFailed):
		return "elevation_failed"
	default:
		return "spawn"
	}
}
