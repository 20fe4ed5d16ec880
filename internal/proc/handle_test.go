package proc

import (
	"os"
	"testing"
)

func TestSyntheticHandlePIDsNegativeAndUnique(t *testing.T) {
	a := NewSyntheticHandle("game.exe")
	b := NewSyntheticHandle("game.exe")
	if a.PID() >= 0 || b.PID() >= 0 {
		t.Fatalf("fabricated pids must be negative: %d %d", a.PID(), b.PID())
	}
	if a.PID() == b.PID() {
		t.Fatalf("fabricated pids must be unique: %d", a.PID())
	}
	if !a.Synthetic() {
		t.Fatal("synthetic handle must report Synthetic")
	}
}

func TestSyntheticHandleFirstDiscoveryWins(t *testing.T) {
	h := NewSyntheticHandle("game")
	fake := h.PID()
	h.SetRealPID(1234)
	if h.PID() != 1234 || h.RealPID() != 1234 {
		t.Fatalf("real pid not recorded: %d", h.PID())
	}
	h.SetRealPID(5678)
	if h.PID() != 1234 {
		t.Fatalf("second discovery must not overwrite: %d", h.PID())
	}
	h.SetRealPID(-1)
	if h.RealPID() != 1234 {
		t.Fatal("invalid pid must be ignored")
	}
	_ = fake
}

func TestSyntheticHandleAliveWithoutPID(t *testing.T) {
	h := NewSyntheticHandle("definitely-not-a-real-binary")
	if h.Alive() {
		t.Fatal("handle without discovered pid must not report alive")
	}
}

func TestRealHandleAliveSelf(t *testing.T) {
	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess: %v", err)
	}
	h := &RealHandle{Proc: p, Pid: os.Getpid()}
	if h.Synthetic() {
		t.Fatal("real handle must not report Synthetic")
	}
	if !h.Alive() {
		t.Fatal("own process should be alive")
	}
}
