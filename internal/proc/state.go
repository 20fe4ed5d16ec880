package proc

// Status is the lifecycle state of a supervised process record.
//
// State machine:
//
//	launching -> running -> {detached, closing, closed}
//	launching -> {detached, closing, closed, error}
//	detached  -> {closing, closed}
//	closing   -> closed
//
// closed and error are terminal. error is reachable only from launching: a
// failure after the process exists is reported as a closed transition with a
// non-zero (or unknown) exit code, never as error.
type Status int32

const (
	StatusLaunching Status = iota
	StatusRunning
	StatusDetached
	StatusClosing
	StatusClosed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLaunching:
		return "launching"
	case StatusRunning:
		return "running"
	case StatusDetached:
		return "detached"
	case StatusClosing:
		return "closing"
	case StatusClosed:
		return "closed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is legal from s.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusError
}

// legalTransitions maps each state to the set of states it may move to.
// Status only ever moves forward; there is no resurrection after closed.
var legalTransitions = map[Status][]Status{
	StatusLaunching: {StatusRunning, StatusDetached, StatusClosing, StatusClosed, StatusError},
	StatusRunning:   {StatusDetached, StatusClosing, StatusClosed},
	StatusDetached:  {StatusClosing, StatusClosed},
	StatusClosing:   {StatusClosed},
	StatusClosed:    {},
	StatusError:     {},
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, t := range legalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
