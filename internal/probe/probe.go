// Package probe answers "is this pid / executable still alive" using the
// cheapest batched process-table query per platform, with per-process
// signal-based fallbacks when the batch query is unavailable. Absence from a
// result set is the only negative signal; probes never fail for "not found".
package probe

import (
	"context"
	"path/filepath"
)

// chunkSize bounds pids per process-table invocation to respect command-line
// length limits.
const chunkSize = 50

// Target identifies one process to probe: the pid when known, and the
// executable name for handle-less (elevated) records probed by name.
type Target struct {
	PID        int
	Executable string
}

// AlivePIDs returns the subset of pids confirmed alive. It issues one batched
// process-table query per chunk and falls back to per-pid signal probing when
// the batch query fails.
func AlivePIDs(ctx context.Context, pids []int) map[int]bool {
	alive := make(map[int]bool, len(pids))
	for start := 0; start < len(pids); start += chunkSize {
		end := start + chunkSize
		if end > len(pids) {
			end = len(pids)
		}
		chunk := pids[start:end]
		set, err := tableAlivePIDs(ctx, chunk)
		if err != nil {
			for _, pid := range chunk {
				if pidAlive(pid) {
					alive[pid] = true
				}
			}
			continue
		}
		for pid := range set {
			alive[pid] = true
		}
	}
	return alive
}

// AliveNames returns the subset of executable names with at least one live
// instance in the process table. Used for elevated records whose real pid was
// never discovered.
func AliveNames(ctx context.Context, executables []string) map[string]bool {
	names := make([]string, 0, len(executables))
	for _, e := range executables {
		names = append(names, filepath.Base(e))
	}
	set, err := tableAliveNames(ctx, names)
	if err != nil {
		return scanAliveNames(names)
	}
	out := make(map[string]bool, len(set))
	for i, n := range names {
		if set[n] {
			out[executables[i]] = true
		}
	}
	return out
}
