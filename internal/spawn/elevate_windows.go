//go:build windows

package spawn

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/gamesup/gamesup/internal/proc"
)

// elevateCommand builds a PowerShell Start-Process -Verb RunAs invocation.
// -Wait keeps the helper alive for the elevated child's lifetime so its
// completion can serve as a termination hint.
func elevateCommand(spec Spec) *exec.Cmd {
	var sb strings.Builder
	sb.WriteString("Start-Process -FilePath ")
	sb.WriteString(psQuote(spec.Executable))
	if len(spec.Args) > 0 {
		quoted := make([]string, 0, len(spec.Args))
		for _, a := range spec.Args {
			quoted = append(quoted, psQuote(a))
		}
		sb.WriteString(" -ArgumentList ")
		sb.WriteString(strings.Join(quoted, ","))
	}
	if spec.WorkDir != "" {
		sb.WriteString(" -WorkingDirectory ")
		sb.WriteString(psQuote(spec.WorkDir))
	}
	sb.WriteString(" -Verb RunAs -Wait")

	// #nosec G204 -- helper binary is fixed; parameters passed the validation boundary
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", sb.String())
}

// psQuote single-quotes a value for PowerShell, doubling embedded quotes.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// classifyElevationErr maps the UAC dismissal error text to the cancelled
// kind; everything else is a mechanism failure.
func classifyElevationErr(err error, stderr string) error {
	low := strings.ToLower(stderr)
	if strings.Contains(low, "canceled by the user") || strings.Contains(low, "cancelled by the user") {
		return proc.ErrElevationCancelled
	}
	return fmt.Errorf("%w: %v: %s", proc.ErrElevationFailed, err, strings.TrimSpace(stderr))
}
