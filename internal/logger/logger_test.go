package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCaptureConfigEnabled(t *testing.T) {
	if (CaptureConfig{}).Enabled() {
		t.Fatal("zero config should be disabled")
	}
	if !(CaptureConfig{Dir: "/tmp"}).Enabled() {
		t.Fatal("dir alone should enable capture")
	}
	if !(CaptureConfig{StdoutPath: "/tmp/x.log"}).Enabled() {
		t.Fatal("stdout path alone should enable capture")
	}
}

func TestWritersDefaultPathsFromDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "captures")
	c := CaptureConfig{Dir: dir}
	out, errW, err := c.Writers("g1")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	defer func() { _ = out.Close() }()
	defer func() { _ = errW.Close() }()

	if _, err := out.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "g1.stdout.log")); err != nil {
		t.Fatalf("stdout file missing: %v", err)
	}
}

func TestWritersExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	c := CaptureConfig{
		StdoutPath: filepath.Join(dir, "out.log"),
		StderrPath: filepath.Join(dir, "err.log"),
	}
	out, errW, err := c.Writers("ignored")
	if err != nil {
		t.Fatalf("Writers: %v", err)
	}
	if out == nil || errW == nil {
		t.Fatal("both writers should be present")
	}
	_ = out.Close()
	_ = errW.Close()
}

func TestSetupLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus", ""} {
		if l := Setup(level, false); l == nil {
			t.Fatalf("Setup(%q) returned nil", level)
		}
	}
	if l := Setup("info", true); l == nil {
		t.Fatal("json Setup returned nil")
	}
}
