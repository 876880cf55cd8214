package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Persist results
const (
	ResultSuccess   = "success"
	ResultFailure   = "failure"
	ResultPartial   = "partial"
	ResultCancelled = "cancelled"
	ResultTimeout   = "timeout"
)

// Merge kinds
const (
	MergeRemote = "remote"
	MergeImport = "import"
)

// Metrics groups the collectors the application reports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RemotePersistTotal    *prometheus.CounterVec
	RemotePersistDuration prometheus.Histogram
	LocalSaveTotal        *prometheus.CounterVec
	MergeTotal            *prometheus.CounterVec
	CarryForwardTasks     prometheus.Counter
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		RemotePersistTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daybook_remote_persist_total",
				Help: "Remote persist attempts by result",
			},
			[]string{"result"},
		),
		RemotePersistDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "daybook_remote_persist_duration_seconds",
				Help:    "Duration of remote persist attempts",
				Buckets: []float64{.025, .05, .1, .25, .5, .8, 1, 2.5},
			},
		),
		LocalSaveTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daybook_local_save_total",
				Help: "Local saves by result",
			},
			[]string{"result"},
		),
		MergeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "daybook_merge_total",
				Help: "Collection merges by kind",
			},
			[]string{"kind"},
		),
		CarryForwardTasks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "daybook_carry_forward_tasks_total",
				Help: "Tasks moved forward to the current day",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.RemotePersistTotal,
		m.RemotePersistDuration,
		m.LocalSaveTotal,
		m.MergeTotal,
		m.CarryForwardTasks,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRemotePersist(result string, seconds float64) {
	if m == nil {
		return
	}
	m.RemotePersistTotal.WithLabelValues(result).Inc()
	m.RemotePersistDuration.Observe(seconds)
}

func (m *Metrics) ObserveLocalSave(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.LocalSaveTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	m.LocalSaveTotal.WithLabelValues(ResultSuccess).Inc()
}

func (m *Metrics) ObserveMerge(kind string) {
	if m == nil {
		return
	}
	m.MergeTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveCarryForward(moved int) {
	if m == nil || moved <= 0 {
		return
	}
	m.CarryForwardTasks.Add(float64(moved))
}
