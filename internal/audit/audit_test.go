package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type memSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (m *memSink) Send(_ context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("sink down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func TestLoggerFansOutToSinks(t *testing.T) {
	a, b := &memSink{}, &memSink{}
	l := New(nil)
	l.SetSinks(a, b)

	l.Log(KindLaunch, true, Event{ProcessID: "g1", PID: 42, Elevated: true})
	if a.count() != 1 || b.count() != 1 {
		t.Fatalf("fan-out incomplete: a=%d b=%d", a.count(), b.count())
	}
	got := a.events[0]
	if got.Kind != KindLaunch || !got.Success || got.ProcessID != "g1" || !got.Elevated {
		t.Fatalf("event fields lost: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatal("OccurredAt not stamped")
	}
}

func TestLoggerSinkFailureIsSwallowed(t *testing.T) {
	bad := &memSink{fail: true}
	good := &memSink{}
	l := New(nil)
	l.SetSinks(bad, good)

	// Must not panic and must still reach the healthy sink.
	l.Log(KindTermination, true, Event{ProcessID: "g2"})
	if good.count() != 1 {
		t.Fatalf("healthy sink skipped after failing sink: %d", good.count())
	}
}

func TestLoggerNoSinks(t *testing.T) {
	l := New(nil)
	l.Log(KindKill, false, Event{ProcessID: "g3"})
	l.SetSinks()
	l.Log(KindAdminExec, true, Event{ProcessID: "g3"})
}
