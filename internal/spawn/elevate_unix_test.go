//go:build !windows

package spawn

import (
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/gamesup/gamesup/internal/proc"
)

// exitErr runs a shell that exits with code so classification sees a genuine
// *exec.ExitError instead of a fabricated one.
func exitErr(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("/bin/sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	if err == nil {
		t.Fatalf("expected an exit error for code %d", code)
	}
	return err
}

func TestClassifyElevationErrExitCodes(t *testing.T) {
	if err := classifyElevationErr(exitErr(t, 126), ""); !errors.Is(err, proc.ErrElevationCancelled) {
		t.Fatalf("exit 126 should classify as cancelled, got %v", err)
	}
	if err := classifyElevationErr(exitErr(t, 127), ""); !errors.Is(err, proc.ErrElevationFailed) {
		t.Fatalf("exit 127 should classify as failed, got %v", err)
	}
	if errors.Is(classifyElevationErr(exitErr(t, 127), ""), proc.ErrElevationCancelled) {
		t.Fatal("exit 127 must not classify as cancelled")
	}
}

func TestClassifyElevationErrStderr(t *testing.T) {
	err := classifyElevationErr(exitErr(t, 1), "Error executing command: Request dismissed\n")
	if !errors.Is(err, proc.ErrElevationCancelled) {
		t.Fatalf("dismissed stderr should classify as cancelled, got %v", err)
	}
	err = classifyElevationErr(exitErr(t, 1), "sudo: a password is required\n")
	if !errors.Is(err, proc.ErrElevationFailed) {
		t.Fatalf("generic stderr should classify as failed, got %v", err)
	}
}
