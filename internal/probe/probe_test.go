package probe

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestAlivePIDsSelf(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	self := os.Getpid()
	alive := AlivePIDs(ctx, []int{self, 1 << 28})
	if !alive[self] {
		t.Fatal("own pid should be alive")
	}
	if alive[1<<28] {
		t.Fatal("implausible pid reported alive")
	}
}

func TestAlivePIDsEmpty(t *testing.T) {
	alive := AlivePIDs(context.Background(), nil)
	if len(alive) != 0 {
		t.Fatalf("empty input should give empty result, got %v", alive)
	}
}

func TestAlivePIDsChunks(t *testing.T) {
	// More pids than one chunk; all bogus, result must stay empty.
	pids := make([]int, chunkSize+7)
	for i := range pids {
		pids[i] = 1<<28 + i
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if alive := AlivePIDs(ctx, pids); len(alive) != 0 {
		t.Fatalf("bogus pids reported alive: %v", alive)
	}
}

func TestAliveNamesMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	alive := AliveNames(ctx, []string{"/opt/none/definitely-not-a-real-binary"})
	if alive["/opt/none/definitely-not-a-real-binary"] {
		t.Fatal("nonexistent executable reported alive")
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Game.EXE": "game",
		"game.exe": "game",
		"Game":     "game",
		"game.bin": "game.bin",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Fatalf("normalizeName(%q)=%q want %q", in, got, want)
		}
	}
}

func TestPidAliveSelf(t *testing.T) {
	if !pidAlive(os.Getpid()) {
		t.Fatal("own pid should be alive")
	}
	if pidAlive(1 << 28) {
		t.Fatal("implausible pid reported alive")
	}
}
