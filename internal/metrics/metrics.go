// Package metrics wires the tracer engine's progress-event stream into
// Prometheus collectors, grounded in middleware/metrics.go's label-vector
// style (method/path/status labels there; asset_type/phase/outcome labels
// here).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/valueflow-tracer/internal/tracer"
)

// Metrics holds every collector the tracer exposes. Register with a
// *prometheus.Registry of the caller's choosing.
type Metrics struct {
	EdgesEmittedTotal    *prometheus.CounterVec
	ContractChecksTotal  prometheus.Counter
	ContractCheckErrors  prometheus.Counter
	FetchDurationSeconds *prometheus.HistogramVec
	TracesInFlight       prometheus.Gauge
	TracesCompletedTotal *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		EdgesEmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valueflow_edges_emitted_total",
			Help: "Edges accepted into a trace's graph, added once per completed trace under asset_type=\"total\".",
		}, []string{"asset_type"}),
		ContractChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valueflow_contract_checks_total",
			Help: "Contract-tagging lookups performed during traces.",
		}),
		ContractCheckErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "valueflow_contract_check_errors_total",
			Help: "Contract-tagging lookups that failed and degraded to is_contract=false.",
		}),
		FetchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "valueflow_fetch_duration_seconds",
			Help:    "Wall time spent fetching one address's transfer batch, by phase.",
			Buckets: prometheus.DefBuckets,
		}, []string{"phase"}),
		TracesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "valueflow_traces_in_flight",
			Help: "Number of trace() calls currently running.",
		}),
		TracesCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "valueflow_traces_completed_total",
			Help: "Completed traces, by outcome.",
		}, []string{"outcome"}),
	}
}

// MustRegister registers every collector against reg, panicking on
// duplicate registration the way the teacher's main.go treats startup
// wiring failures as fatal.
func (m *Metrics) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		m.EdgesEmittedTotal,
		m.ContractChecksTotal,
		m.ContractCheckErrors,
		m.FetchDurationSeconds,
		m.TracesInFlight,
		m.TracesCompletedTotal,
	)
}

// ProgressSink adapts the tracer's progress-event stream into metric
// updates. Events the Metrics type doesn't care about are ignored.
func (m *Metrics) ProgressSink() tracer.ProgressSink {
	return tracer.ProgressFunc(func(e tracer.Event) {
		switch e.Kind {
		case tracer.EventDone:
			m.ContractChecksTotal.Add(float64(e.ContractChecked))
			m.ContractCheckErrors.Add(float64(e.ContractErrors))
			m.EdgesEmittedTotal.WithLabelValues("total").Add(float64(e.Edges))
			m.TracesCompletedTotal.WithLabelValues("success").Inc()
		case tracer.EventError:
			m.TracesCompletedTotal.WithLabelValues("error").Inc()
		}
	})
}
