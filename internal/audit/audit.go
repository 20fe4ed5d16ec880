// Package audit records launch, termination, and admin-execution events.
// Audit failures never affect engine correctness: sink errors are logged at
// warn level and dropped.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies an audit entry.
type Kind string

const (
	KindLaunch      Kind = "launch"
	KindTermination Kind = "termination"
	KindKill        Kind = "kill"
	KindAdminExec   Kind = "admin_exec"
)

// Event is one audit entry.
type Event struct {
	Kind       Kind              `json:"kind"`
	Success    bool              `json:"success"`
	ProcessID  string            `json:"process_id"`
	PID        int               `json:"pid"`
	Elevated   bool              `json:"elevated"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink is a destination for audit events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Logger fans events out to slog and any configured sinks.
type Logger struct {
	log *slog.Logger

	mu    sync.RWMutex
	sinks []Sink
}

func New(log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{log: log}
}

// SetSinks replaces the sink list. Passing none clears it.
func (l *Logger) SetSinks(sinks ...Sink) {
	l.mu.Lock()
	l.sinks = append([]Sink(nil), sinks...)
	l.mu.Unlock()
}

// Log records an event. Never returns an error; the engine must not care.
func (l *Logger) Log(kind Kind, success bool, e Event) {
	e.Kind = kind
	e.Success = success
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	l.log.Info("audit",
		"kind", string(e.Kind),
		"success", e.Success,
		"process_id", e.ProcessID,
		"pid", e.PID,
		"elevated", e.Elevated,
	)

	l.mu.RLock()
	sinks := append([]Sink(nil), l.sinks...)
	l.mu.RUnlock()
	for _, s := range sinks {
		if err := s.Send(context.Background(), e); err != nil {
			l.log.Warn("audit sink send failed", "error", err)
		}
	}
}
