//go:build windows

package spawn

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr creates the child in a new process group so console
// signals do not propagate back into the supervisor.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
