package spawn

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/gamesup/gamesup/internal/proc"
)

// DefaultGraceWindow is the quick-exit window: a clean exit this soon after
// spawn is treated as a GUI detach, not a real termination, because many game
// launchers run a short bootstrap that re-execs the real title.
const DefaultGraceWindow = 500 * time.Millisecond

// Direct spawns the child in-process with an inherited or overridden
// environment and optional output capture.
type Direct struct{}

func (d *Direct) Spawn(ctx context.Context, spec Spec, out OutputFunc) (*Result, error) {
	// #nosec G204 -- executable and args come through the validation boundary
	cmd := exec.Command(spec.Executable, spec.Args...)
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if env := mergeEnv(spec.Env); env != nil {
		cmd.Env = env
	}
	configureSysProcAttr(cmd)

	var wg sync.WaitGroup
	if spec.Capture && out != nil {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, &proc.SpawnError{Executable: spec.Executable, Err: err}
		}
		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, &proc.SpawnError{Executable: spec.Executable, Err: err}
		}
		wg.Add(2)
		go pumpOutput("stdout", stdout, out, &wg)
		go pumpOutput("stderr", stderr, out, &wg)
	} else {
		null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		cmd.Stdout = null
		cmd.Stderr = null
	}

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &proc.SpawnError{Executable: spec.Executable, Err: err}
	}
	if err := ctx.Err(); err != nil {
		_ = cmd.Process.Kill()
		return nil, &proc.SpawnError{Executable: spec.Executable, Err: err}
	}

	grace := spec.GraceWindow
	if grace <= 0 {
		grace = DefaultGraceWindow
	}

	exitCh := make(chan ExitState, 1)
	go func() {
		defer close(exitCh)
		err := cmd.Wait()
		wg.Wait()
		st := exitStateFrom(cmd, err)
		if time.Since(started) < grace && st.Code != nil && *st.Code == 0 && st.Signal == "" {
			st.Quick = true
		}
		exitCh <- st
	}()

	return &Result{
		Handle: &proc.RealHandle{Proc: cmd.Process, Pid: cmd.Process.Pid},
		Exit:   exitCh,
	}, nil
}

// pumpOutput forwards child output line-wise to the capture callback.
func pumpOutput(stream string, r io.Reader, out OutputFunc, wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		data := append([]byte(nil), sc.Bytes()...)
		out(stream, data)
	}
}

// exitStateFrom extracts exit code and signal from a completed command.
func exitStateFrom(cmd *exec.Cmd, err error) ExitState {
	var st ExitState
	if err == nil {
		code := 0
		if ps := cmd.ProcessState; ps != nil {
			code = ps.ExitCode()
		}
		st.Code = &code
		return st
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			st.Signal = ws.Signal().String()
			return st
		}
		code := ee.ExitCode()
		st.Code = &code
	}
	return st
}
