package probe

import (
	"path/filepath"
	"strings"
	"time"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// DiscoverPID scans the process table for an instance of executable created
// within a short window around the launch call and returns its pid, or 0 when
// none matches. Elevated launches use this because the escalation helper never
// exposes the real pid.
func DiscoverPID(executable string, launchedAt time.Time, slack time.Duration) int {
	want := normalizeName(filepath.Base(executable))
	procs, err := gopsproc.Processes()
	if err != nil {
		return 0
	}
	lo := launchedAt.Add(-slack)
	best := 0
	var bestCreated int64
	for _, p := range procs {
		name, nerr := p.Name()
		if nerr != nil || normalizeName(name) != want {
			continue
		}
		created := createTimeUnix(int(p.Pid))
		if created == 0 {
			ms, cerr := p.CreateTime()
			if cerr != nil {
				continue
			}
			created = ms / 1000
		}
		if created < lo.Unix() {
			continue
		}
		// Prefer the earliest instance inside the window: the elevated
		// bootstrap is created first, re-execs come later.
		if best == 0 || created < bestCreated {
			best = int(p.Pid)
			bestCreated = created
		}
	}
	return best
}

// scanAliveNames is the gopsutil fallback when the platform table query is
// unavailable.
func scanAliveNames(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	procs, err := gopsproc.Processes()
	if err != nil {
		return set
	}
	want := make(map[string]string, len(names))
	for _, n := range names {
		want[normalizeName(n)] = n
	}
	for _, p := range procs {
		name, nerr := p.Name()
		if nerr != nil {
			continue
		}
		if orig, ok := want[normalizeName(name)]; ok {
			set[orig] = true
		}
	}
	return set
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}
