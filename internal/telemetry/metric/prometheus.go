package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tokvault"

// Read results.
const (
	ReadHit            = "hit"
	ReadMiss           = "miss"
	ReadDiscarded      = "discarded"
	ReadKeyUnavailable = "key_unavailable"
	ReadError          = "error"
)

// Delete reasons.
const (
	DeleteExplicit = "explicit"
	DeleteTampered = "tampered"
	DeleteExpired  = "expired"
	DeleteCorrupt  = "corrupt"
	DeleteClear    = "clear"
)

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	Store *StoreMetrics
}

// StoreMetrics are the record store collectors.
type StoreMetrics struct {
	Sets          *prometheus.CounterVec
	Gets          *prometheus.CounterVec
	Deletes       *prometheus.CounterVec
	SweepRuns     prometheus.Counter
	SweepRemoved  prometheus.Counter
	SweepDuration prometheus.Histogram
}

// NewRegistry creates a registry with the store metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	return &Registry{
		registry: reg,
		Store:    NewStoreMetrics(reg),
	}
}

// Prometheus returns the underlying registry for engine collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// NewStoreMetrics creates the store collectors and registers them with reg
// when reg is non-nil.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "sets_total",
			Help:      "Records written, by whether they were encrypted",
		}, []string{"encrypted"}),

		Gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "gets_total",
			Help:      "Record reads, by result",
		}, []string{"result"}),

		Deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "deletes_total",
			Help:      "Records removed, by reason",
		}, []string{"reason"}),

		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Completed expiry sweeps",
		}),

		SweepRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "removed_total",
			Help:      "Records removed by expiry sweeps",
		}),

		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Expiry sweep duration",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Sets, m.Gets, m.Deletes, m.SweepRuns, m.SweepRemoved, m.SweepDuration)
	}
	return m
}

// ObserveSet records a write.
func (m *StoreMetrics) ObserveSet(encrypted bool) {
	if m == nil {
		return
	}
	label := "false"
	if encrypted {
		label = "true"
	}
	m.Sets.WithLabelValues(label).Inc()
}

// ObserveGet records a read result.
func (m *StoreMetrics) ObserveGet(result string) {
	if m == nil {
		return
	}
	m.Gets.WithLabelValues(result).Inc()
}

// ObserveDelete records n removals for reason.
func (m *StoreMetrics) ObserveDelete(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Deletes.WithLabelValues(reason).Add(float64(n))
}

// ObserveSweep records a finished sweep.
func (m *StoreMetrics) ObserveSweep(removed int, seconds float64) {
	if m == nil {
		return
	}
	m.SweepRuns.Inc()
	m.SweepRemoved.Add(float64(removed))
	m.SweepDuration.Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
