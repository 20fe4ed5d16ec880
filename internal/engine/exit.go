package engine

import (
	"context"
	"time"

	"github.com/gamesup/gamesup/internal/audit"
	"github.com/gamesup/gamesup/internal/metrics"
	"github.com/gamesup/gamesup/internal/probe"
	"github.com/gamesup/gamesup/internal/proc"
	"github.com/gamesup/gamesup/internal/spawn"
)

// watchExit consumes the spawn strategy's exit channel. Native waits carry
// the real exit state; elevated helpers only deliver a termination hint that
// must be confirmed by probing before finalizing.
func (e *Engine) watchExit(rec *proc.Record, exit <-chan spawn.ExitState) {
	defer e.wg.Done()
	st, ok := <-exit
	if !ok {
		return
	}
	switch {
	case st.Hint:
		// Helper completion suggests the target is gone; the process table
		// is authoritative. If it is still alive, hand off to the monitor.
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.MonitorInterval)
		defer cancel()
		if h := rec.Handle(); h != nil && h.PID() > 0 {
			alive := probe.AlivePIDs(ctx, []int{h.PID()})
			if alive[h.PID()] {
				return
			}
		} else {
			alive := probe.AliveNames(ctx, []string{rec.Executable})
			if alive[rec.Executable] {
				return
			}
		}
		e.finalize(rec, "helper", nil, "")
	case st.Quick:
		// Clean fast exit within the grace window: the executable likely
		// handed off to the real game process. Detach instead of closing.
		if e.transition(rec, proc.StatusDetached) {
			e.log.Info("launcher exited quickly, detaching", "id", rec.ID, "pid", rec.Handle().PID())
			return
		}
		e.finalize(rec, "native", st.Code, st.Signal)
	default:
		e.finalize(rec, "native", st.Code, st.Signal)
	}
}

// finalize is the only path out of the registry. It runs under the per-id
// guard so concurrent exit detections (native wait, monitor, kill) collapse
// into exactly one terminal event.
func (e *Engine) finalize(rec *proc.Record, detectedBy string, code *int, signal string) {
	var (
		prev     proc.Status
		advanced bool
	)
	e.reg.WithLock(rec.ID, func() {
		if rec.Status().Terminal() {
			return
		}
		prev, advanced = rec.Transition(proc.StatusClosed)
		if !advanced {
			return
		}
		rec.SetExit(code, signal)
		e.reg.Remove(rec.ID)
	})
	if !advanced {
		return
	}
	e.cache.Invalidate(rec.ID)
	e.closeCapture(rec.ID)
	metrics.IncTransition(prev.String(), proc.StatusClosed.String())
	metrics.IncExit(detectedBy)
	metrics.SetSupervised(e.reg.Len())

	s := rec.Snapshot()
	duration := time.Duration(0)
	if !s.StartedAt.IsZero() {
		duration = time.Since(s.StartedAt)
	}
	rec.Emit(proc.Event{Kind: proc.EventStatusChange, Prev: prev, Curr: proc.StatusClosed})
	rec.Emit(proc.Event{
		Kind:     proc.EventClosed,
		ExitCode: s.ExitCode,
		Signal:   s.Signal,
		Duration: duration,
	})

	details := map[string]string{"detected_by": detectedBy}
	if s.Signal != "" {
		details["signal"] = s.Signal
	}
	pid := 0
	if h := rec.Handle(); h != nil {
		pid = h.PID()
	}
	e.aud.Log(audit.KindTermination, true, audit.Event{ProcessID: rec.ID, PID: pid, Details: details})
	e.log.Info("process closed", "id", rec.ID, "detected_by", detectedBy, "duration", duration)
}
