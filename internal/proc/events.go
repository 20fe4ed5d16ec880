package proc

import "time"

// EventKind enumerates per-process lifecycle events.
type EventKind string

const (
	EventLaunched     EventKind = "launched"
	EventStatusChange EventKind = "status_change"
	EventOutput       EventKind = "output"
	EventClosed       EventKind = "closed"
	EventError        EventKind = "error"
)

// Event is delivered to the listener registered at launch time. Exactly one
// EventClosed fires per successfully launched id; there is no silent
// disappearance even when the cause of exit is unknown.
type Event struct {
	ID   string
	Kind EventKind

	// status_change
	Prev Status
	Curr Status

	// output (only when capture was requested)
	Stream string // "stdout" or "stderr"
	Data   []byte

	// closed; ExitCode and Signal are nil/empty when the exit was detected by
	// polling and the real code is unknowable.
	ExitCode *int
	Signal   string
	Duration time.Duration

	// error
	Phase string
	Err   error
}

// Listener receives events for one supervised process. Implementations must
// not block; the engine delivers events outside its locks but from lifecycle
// goroutines.
type Listener func(Event)
