// Package gamesup supervises game executables: it launches them directly or
// through privilege elevation, tracks their lifecycle, detects termination
// through native waits and batched process-table polling, and delivers
// exactly one terminal event per launched id.
package gamesup

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gamesup/gamesup/internal/audit"
	"github.com/gamesup/gamesup/internal/audit/factory"
	"github.com/gamesup/gamesup/internal/cache"
	cfg "github.com/gamesup/gamesup/internal/config"
	"github.com/gamesup/gamesup/internal/engine"
	"github.com/gamesup/gamesup/internal/logger"
	"github.com/gamesup/gamesup/internal/metrics"
	"github.com/gamesup/gamesup/internal/proc"
	iapi "github.com/gamesup/gamesup/internal/server"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type LaunchSpec = engine.LaunchSpec

type Snapshot = proc.Snapshot

type Event = proc.Event

type EventKind = proc.EventKind

type Listener = proc.Listener

type Options = engine.Options

type AuditSink = audit.Sink

// Event kinds delivered to launch listeners.
const (
	EventLaunched     = proc.EventLaunched
	EventStatusChange = proc.EventStatusChange
	EventOutput       = proc.EventOutput
	EventClosed       = proc.EventClosed
	EventError        = proc.EventError
)

// Sentinel errors surfaced by Launch and friends.
var (
	ErrAlreadyRunning     = proc.ErrAlreadyRunning
	ErrConcurrencyLimit   = proc.ErrConcurrencyLimit
	ErrUnknownProcess     = proc.ErrUnknownProcess
	ErrElevationCancelled = proc.ErrElevationCancelled
	ErrElevationFailed    = proc.ErrElevationFailed
	ErrTerminationTimeout = proc.ErrTerminationTimeout
	ErrShuttingDown       = proc.ErrShuttingDown
)

// Supervisor is a thin facade over internal/engine.Engine. It provides a
// stable public API for embedding.
type Supervisor struct{ inner *engine.Engine }

// New builds a supervisor with default options, an in-memory snapshot cache,
// and log-only auditing.
func New() *Supervisor {
	return NewWithOptions(Options{}, nil, nil)
}

// NewWithOptions builds a supervisor with explicit tunables, logger, and
// audit sinks. Nil logger falls back to slog.Default.
func NewWithOptions(opts Options, log *slog.Logger, sinks []AuditSink) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	aud := audit.New(log)
	if len(sinks) > 0 {
		aud.SetSinks(sinks...)
	}
	return &Supervisor{inner: engine.New(opts, log, aud, cache.NewLRU(0, 0))}
}

func (s *Supervisor) Launch(ctx context.Context, ls LaunchSpec) (Snapshot, error) {
	return s.inner.Launch(ctx, ls)
}
func (s *Supervisor) Kill(id string, force bool) bool   { return s.inner.Kill(id, force) }
func (s *Supervisor) IsRunning(id string) bool          { return s.inner.IsRunning(id) }
func (s *Supervisor) Snapshot(id string) *Snapshot      { return s.inner.Snapshot(id) }
func (s *Supervisor) AllSnapshots() map[string]Snapshot { return s.inner.AllSnapshots() }
func (s *Supervisor) Shutdown()                         { s.inner.Shutdown() }

// Config facade

type Config = cfg.Config

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewFromConfig builds a fully wired supervisor: logger, audit sinks, and
// engine tunables all come from the loaded configuration.
func NewFromConfig(c *Config) (*Supervisor, error) {
	log := logger.Setup(c.LogLevel, c.LogJSON)
	sinks, err := factory.Build(c.Audit)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(Options{
		MonitorInterval:  c.Engine.MonitorInterval,
		DetachedInterval: c.Engine.DetachedInterval,
		SweepInterval:    c.Engine.SweepInterval,
		StabilityWindow:  c.Engine.StabilityWindow,
		GraceWindow:      c.Engine.GraceWindow,
		SpawnTimeout:     c.Engine.SpawnTimeout,
		KillWait:         c.Engine.KillWait,
		MaxRetries:       c.Engine.MaxRetries,
		MaxConcurrent:    c.Engine.MaxConcurrent,
		Capture:          c.Capture,
	}, log, sinks), nil
}

// NewHTTPServer starts an HTTP server exposing the supervision API using the
// given supervisor.
func NewHTTPServer(addr, basePath string, s *Supervisor) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, s.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It returns any immediate listen error; otherwise it runs
// the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
