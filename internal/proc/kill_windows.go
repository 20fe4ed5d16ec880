//go:build windows

package proc

import (
	"errors"
	"os/exec"
	"path/filepath"
	"strconv"

	"golang.org/x/sys/windows"
)

// signalGroup terminates the process. Windows has no SIGTERM; a graceful stop
// is approximated with taskkill (which posts WM_CLOSE to GUI apps) and force
// goes straight to TerminateProcess.
func signalGroup(pid int, force bool) error {
	if !force {
		// #nosec G204 -- fixed binary, numeric argument
		return exec.Command("taskkill", "/PID", strconv.Itoa(pid), "/T").Run()
	}
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		// Process already gone counts as success for a kill.
		return nil
	}
	defer func() { _ = windows.CloseHandle(h) }()
	return windows.TerminateProcess(h, 1)
}

// pidAlive checks process existence via OpenProcess. Access denied means the
// process exists but is protected (elevated); treat it as alive, consistent
// with the Unix EPERM handling.
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

func shellKillPID(pid int, force bool) error {
	args := []string{"/PID", strconv.Itoa(pid), "/T"}
	if force {
		args = append(args, "/F")
	}
	// #nosec G204 -- fixed binary, numeric argument
	return exec.Command("taskkill", args...).Run()
}

func shellKillName(executable string, force bool) error {
	name := filepath.Base(executable)
	args := []string{"/IM", name, "/T"}
	if force {
		args = append(args, "/F")
	}
	// #nosec G204 -- fixed binary, name is a sanitized executable base name
	return exec.Command("taskkill", args...).Run()
}
