//go:build !windows

package proc

import (
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
)

// signalGroup signals the whole process group so launcher shims take their
// children with them. Falls back to the single pid when no group exists.
func signalGroup(pid int, force bool) error {
	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	return syscall.Kill(pid, sig)
}

// pidAlive checks existence with a no-op signal. EPERM still means alive.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}

// shellKillPID terminates a process we do not own (elevated launches) through
// the external kill command, which can be granted elevation separately.
func shellKillPID(pid int, force bool) error {
	sig := "-TERM"
	if force {
		sig = "-KILL"
	}
	// #nosec G204 -- fixed binary, numeric argument
	return exec.Command("kill", sig, strconv.Itoa(pid)).Run()
}

// shellKillName kills by executable name when pid discovery never succeeded.
func shellKillName(executable string, force bool) error {
	sig := "-TERM"
	if force {
		sig = "-KILL"
	}
	name := filepath.Base(executable)
	// #nosec G204 -- fixed binary, name is a sanitized executable base name
	return exec.Command("pkill", sig, "-x", name).Run()
}
