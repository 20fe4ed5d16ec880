package engine

import (
	"context"
	"time"

	"github.com/gamesup/gamesup/internal/metrics"
	"github.com/gamesup/gamesup/internal/probe"
	"github.com/gamesup/gamesup/internal/proc"
)

// runScheduler drives the periodic supervision tasks from one goroutine: the
// main liveness monitor, the accelerated detached poll, and the stability
// sweep. One goroutine means ticks never overlap each other.
func (e *Engine) runScheduler() {
	defer e.wg.Done()
	monitor := time.NewTicker(e.opts.MonitorInterval)
	defer monitor.Stop()
	detached := time.NewTicker(e.opts.DetachedInterval)
	defer detached.Stop()
	sweep := time.NewTicker(e.opts.SweepInterval)
	defer sweep.Stop()
	for {
		select {
		case <-e.stop:
			return
		case <-monitor.C:
			e.monitorTick()
		case <-detached.C:
			e.detachedTick()
		case <-sweep.C:
			e.sweepTick()
		}
	}
}

// monitorTick probes every running and closing record with batched
// process-table queries. Records with a usable pid (real handles, or
// synthetic handles after discovery) go into the pid batch; synthetic
// handles that never discovered a pid are probed by executable name.
func (e *Engine) monitorTick() {
	var (
		pidRecs  []*proc.Record
		pids     []int
		nameRecs []*proc.Record
		names    []string
	)
	for _, rec := range e.reg.All() {
		st := rec.Status()
		if st != proc.StatusRunning && st != proc.StatusClosing {
			continue
		}
		h := rec.Handle()
		if h == nil {
			continue
		}
		if pid := h.PID(); pid > 0 {
			pidRecs = append(pidRecs, rec)
			pids = append(pids, pid)
		} else {
			nameRecs = append(nameRecs, rec)
			names = append(names, rec.Executable)
		}
	}
	if len(pidRecs) == 0 && len(nameRecs) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.opts.MonitorInterval)
	defer cancel()
	start := time.Now()
	alivePIDs := probe.AlivePIDs(ctx, pids)
	aliveNames := probe.AliveNames(ctx, names)
	metrics.ObserveProbeDuration(time.Since(start).Seconds())
	metrics.IncProbeBatch("table")

	for i, rec := range pidRecs {
		e.applyProbe(rec, alivePIDs[pids[i]])
	}
	for i, rec := range nameRecs {
		e.applyProbe(rec, aliveNames[names[i]])
	}
}

// applyProbe accounts one probe result against a record. Absence alone is
// not termination; only maxRetries consecutive misses finalize the record,
// with an unknown exit code rather than indefinite limbo.
func (e *Engine) applyProbe(rec *proc.Record, alive bool) {
	if alive {
		rec.ConfirmAlive()
		return
	}
	n := rec.IncRetry()
	metrics.IncProbeRetry()
	if n < e.opts.MaxRetries {
		e.log.Debug("liveness probe miss", "id", rec.ID, "retry", n, "max", e.opts.MaxRetries)
		return
	}
	e.finalize(rec, "poll", nil, "")
}

// detachedTick polls detached records at the accelerated interval. The
// launcher pid is dead after the re-exec, so liveness comes from the
// executable name in the process table; retry accounting matches the main
// monitor.
func (e *Engine) detachedTick() {
	var recs []*proc.Record
	var names []string
	for _, rec := range e.reg.All() {
		if rec.Status() != proc.StatusDetached {
			continue
		}
		recs = append(recs, rec)
		names = append(names, rec.Executable)
	}
	if len(recs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.opts.DetachedInterval)
	defer cancel()
	alive := probe.AliveNames(ctx, names)
	for i, rec := range recs {
		e.applyProbe(rec, alive[names[i]])
	}
}

// sweepTick forgives accumulated retries on records confirmed alive within
// the stability window, so transient probe misses spread over many ticks do
// not add up to a false termination.
func (e *Engine) sweepTick() {
	for _, rec := range e.reg.All() {
		if rec.Status().Terminal() {
			continue
		}
		if rec.ForgiveRetries(e.opts.StabilityWindow) {
			e.log.Debug("retry counter forgiven", "id", rec.ID)
		}
	}
}
