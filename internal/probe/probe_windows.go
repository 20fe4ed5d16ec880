//go:build windows

package probe

import (
	"context"
	"encoding/csv"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/windows"
)

// snapshotTable runs tasklist once and returns pid and image-name sets. One
// process-table query serves a whole probe batch.
func snapshotTable(ctx context.Context) (map[int]bool, map[string]bool, error) {
	// #nosec G204 -- fixed binary and arguments
	cmd := exec.CommandContext(ctx, "tasklist", "/FO", "CSV", "/NH")
	out, err := cmd.Output()
	if err != nil {
		return nil, nil, err
	}
	pids := make(map[int]bool)
	names := make(map[string]bool)
	rd := csv.NewReader(strings.NewReader(string(out)))
	rd.FieldsPerRecord = -1
	for {
		rec, rerr := rd.Read()
		if rerr != nil {
			break
		}
		if len(rec) < 2 {
			continue
		}
		names[strings.ToLower(rec[0])] = true
		if pid, perr := strconv.Atoi(rec[1]); perr == nil {
			pids[pid] = true
		}
	}
	return pids, names, nil
}

func tableAlivePIDs(ctx context.Context, pids []int) (map[int]bool, error) {
	table, _, err := snapshotTable(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[int]bool, len(pids))
	for _, pid := range pids {
		if table[pid] {
			set[pid] = true
		}
	}
	return set, nil
}

// tableAliveNames matches image names case-insensitively, with and without
// the .exe suffix, since elevated launches are probed by executable name.
func tableAliveNames(ctx context.Context, names []string) (map[string]bool, error) {
	_, table, err := snapshotTable(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		low := strings.ToLower(name)
		if table[low] || table[low+".exe"] {
			set[name] = true
		}
	}
	return set, nil
}

// pidAlive is the per-process fallback via OpenProcess. Access denied means
// the process exists but is protected; treat as alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return errors.Is(err, windows.ERROR_ACCESS_DENIED)
	}
	_ = windows.CloseHandle(h)
	return true
}
