package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder exposes signal-engine counters via Prometheus.
type Recorder struct {
	runsTotal       *prometheus.CounterVec
	signalsTotal    *prometheus.CounterVec
	mlEnhanced      prometheus.Counter
	degradedTotal   *prometheus.CounterVec
	queuedTotal     prometheus.Counter
	runDuration     *prometheus.HistogramVec
	externalLatency *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates a recorder registered on the given registry. Tests pass
// a fresh registry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_runs_total",
				Help: "Total number of signal generation runs",
			},
			[]string{"trigger", "outcome"},
		),
		signalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_signals_total",
				Help: "Total number of signals emitted",
			},
			[]string{"signal_type"},
		),
		mlEnhanced: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "signal_engine_ml_enhanced_total",
				Help: "Total number of signals blended with ML predictions",
			},
		),
		degradedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signal_engine_degraded_total",
				Help: "Total number of degraded external calls",
			},
			[]string{"dependency"},
		),
		queuedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "signal_engine_reference_queued_total",
				Help: "Total number of signals queued for the reference portfolio",
			},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_engine_run_duration_seconds",
				Help:    "Duration of signal generation runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"trigger"},
		),
		externalLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signal_engine_external_duration_seconds",
				Help:    "Duration of external dependency calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"dependency"},
		),
	}
}

// RecordRun records a completed generation run.
func (r *Recorder) RecordRun(trigger, outcome string, duration time.Duration) {
	r.runsTotal.WithLabelValues(trigger, outcome).Inc()
	r.runDuration.WithLabelValues(trigger).Observe(duration.Seconds())
}

// RecordSignal records an emitted signal by type.
func (r *Recorder) RecordSignal(signalType string) {
	r.signalsTotal.WithLabelValues(signalType).Inc()
}

// RecordMLEnhanced records a signal that was blended with an ML prediction.
func (r *Recorder) RecordMLEnhanced() {
	r.mlEnhanced.Inc()
}

// RecordDegraded records a degraded external call.
func (r *Recorder) RecordDegraded(dependency string) {
	r.degradedTotal.WithLabelValues(dependency).Inc()
}

// RecordQueued records a signal queued for the reference portfolio.
func (r *Recorder) RecordQueued() {
	r.queuedTotal.Inc()
}

// RecordExternalLatency records the latency of an external dependency call.
func (r *Recorder) RecordExternalLatency(dependency string, d time.Duration) {
	r.externalLatency.WithLabelValues(dependency).Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
