//go:build !windows

package probe

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
)

// tableAlivePIDs runs a single ps query for the chunk. ps exits non-zero when
// none of the pids exist, which is a valid empty result, so the exit code is
// ignored and only the parsed output counts.
func tableAlivePIDs(ctx context.Context, pids []int) (map[int]bool, error) {
	if len(pids) == 0 {
		return map[int]bool{}, nil
	}
	args := make([]string, 0, len(pids))
	for _, pid := range pids {
		args = append(args, strconv.Itoa(pid))
	}
	// #nosec G204 -- fixed binary, numeric arguments
	cmd := exec.CommandContext(ctx, "ps", "-o", "pid=", "-p", strings.Join(args, ","))
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			return nil, err
		}
		// Non-zero exit with output still parses; without output it means
		// no pid matched.
	}
	set := make(map[int]bool)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if pid, perr := strconv.Atoi(line); perr == nil {
			set[pid] = true
		}
	}
	return set, nil
}

// tableAliveNames probes executables by name with pgrep -x, one invocation
// per name. pgrep exit code 1 means no match; anything else is a real error.
func tableAliveNames(ctx context.Context, names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		// #nosec G204 -- fixed binary, name is a sanitized executable base name
		cmd := exec.CommandContext(ctx, "pgrep", "-x", name)
		out, err := cmd.Output()
		if err != nil {
			var ee *exec.ExitError
			if errors.As(err, &ee) && ee.ExitCode() == 1 {
				continue
			}
			return nil, err
		}
		if len(strings.TrimSpace(string(out))) > 0 {
			set[name] = true
		}
	}
	return set, nil
}

// pidAlive is the per-process fallback: a no-op signal. EPERM still means the
// process exists.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
