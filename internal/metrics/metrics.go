package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "launches_total",
			Help:      "Number of successful launches by spawn strategy.",
		}, []string{"strategy"},
	)
	launchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "launch_failures_total",
			Help:      "Number of rejected or failed launch attempts by error kind.",
		}, []string{"kind"},
	)
	exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "exits_total",
			Help:      "Number of finalized processes by exit detection path.",
		}, []string{"detected_by"},
	)
	kills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "kills_total",
			Help:      "Number of kill requests.",
		}, []string{"forceful"},
	)
	running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "supervised",
			Help:      "Current number of supervised process records.",
		},
	)
	stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "process",
			Name:      "state_transitions_total",
			Help:      "Lifecycle state transitions.",
		}, []string{"from", "to"},
	)
	probeBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "probe",
			Name:      "batches_total",
			Help:      "Liveness probe batches by outcome (table or fallback).",
		}, []string{"outcome"},
	)
	probeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gamesup",
			Subsystem: "probe",
			Name:      "retries_total",
			Help:      "Liveness retries recorded against running processes.",
		},
	)
	probeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "gamesup",
			Subsystem: "probe",
			Name:      "duration_seconds",
			Help:      "Wall time of one monitoring tick's probe batch.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Register registers all collectors with r. Safe to call more than once.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{
		launches, launchFailures, exits, kills, running,
		stateTransitions, probeBatches, probeRetries, probeDuration,
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Registered reports whether Register completed at least once.
func Registered() bool { return regOK.Load() }

// Handler returns the /metrics HTTP handler for the default registry.
func Handler() http.Handler { return promhttp.Handler() }

func IncLaunch(strategy string)        { launches.WithLabelValues(strategy).Inc() }
func IncLaunchFailure(kind string)     { launchFailures.WithLabelValues(kind).Inc() }
func IncExit(detectedBy string)        { exits.WithLabelValues(detectedBy).Inc() }
func IncKill(forceful bool)            { kills.WithLabelValues(boolLabel(forceful)).Inc() }
func SetSupervised(n int)              { running.Set(float64(n)) }
func IncTransition(from, to string)    { stateTransitions.WithLabelValues(from, to).Inc() }
func IncProbeBatch(outcome string)     { probeBatches.WithLabelValues(outcome).Inc() }
func IncProbeRetry()                   { probeRetries.Inc() }
func ObserveProbeDuration(sec float64) { probeDuration.Observe(sec) }

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
