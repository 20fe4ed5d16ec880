//go:build !windows

package spawn

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gamesup/gamesup/internal/proc"
)

// elevateCommand builds the privilege-escalation helper invocation. pkexec is
// preferred because it has a graphical prompt and a documented dismissal exit
// code; sudo -n is the headless fallback.
func elevateCommand(spec Spec) *exec.Cmd {
	argv := make([]string, 0, len(spec.Env)+len(spec.Args)+2)
	if len(spec.Env) > 0 {
		// pkexec scrubs the environment; re-introduce overrides through env(1).
		argv = append(argv, "env")
		argv = append(argv, spec.Env...)
	}
	argv = append(argv, spec.Executable)
	argv = append(argv, spec.Args...)

	var cmd *exec.Cmd
	if _, err := exec.LookPath("pkexec"); err == nil {
		// #nosec G204 -- helper binary is fixed; argv passed the validation boundary
		cmd = exec.Command("pkexec", argv...)
	} else {
		// #nosec G204
		cmd = exec.Command("sudo", append([]string{"-n", "--"}, argv...)...)
	}
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	return cmd
}

// classifyElevationErr separates "user dismissed the prompt" from "the
// mechanism errored". pkexec exits 126 on dismissal and 127 on authorization
// failure; sudo -n prints a password-required notice when it cannot prompt.
func classifyElevationErr(err error, stderr string) error {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		switch ee.ExitCode() {
		case 126:
			return proc.ErrElevationCancelled
		case 127:
			return fmt.Errorf("%w: not authorized", proc.ErrElevationFailed)
		}
	}
	low := strings.ToLower(stderr)
	if strings.Contains(low, "dismissed") || strings.Contains(low, "request dismissed") {
		return proc.ErrElevationCancelled
	}
	return fmt.Errorf("%w: %v: %s", proc.ErrElevationFailed, err, strings.TrimSpace(stderr))
}
