// Package metrics holds the Prometheus collectors for the ETL pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "etl"

// Metrics groups all collectors on a private registry. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	APICalls      *prometheus.CounterVec
	APIRetries    *prometheus.CounterVec
	VideosDropped *prometheus.CounterVec
	RowsLoaded    *prometheus.CounterVec
	Runs          *prometheus.CounterVec
	LastSuccess   prometheus.Gauge
	RunDuration   prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		APICalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_calls_total",
			Help:      "YouTube Data API calls issued, by endpoint.",
		}, []string{"endpoint"}),
		APIRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "YouTube Data API call retries after transient failures, by endpoint.",
		}, []string{"endpoint"}),
		VideosDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_dropped_total",
			Help:      "Videos removed by the transformer, by reason.",
		}, []string{"reason"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Rows written to the destination tables, by table.",
		}, []string{"table"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs, by terminal status.",
		}, []string{"status"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	m.Registry.MustRegister(
		m.APICalls,
		m.APIRetries,
		m.VideosDropped,
		m.RowsLoaded,
		m.Runs,
		m.LastSuccess,
		m.RunDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// ObserveAPICall counts one API call.
func (m *Metrics) ObserveAPICall(endpoint string) {
	if m == nil {
		return
	}
	m.APICalls.WithLabelValues(endpoint).Inc()
}

// ObserveRetry counts one retry of an API call.
func (m *Metrics) ObserveRetry(endpoint string) {
	if m == nil {
		return
	}
	m.APIRetries.WithLabelValues(endpoint).Inc()
}

// ObserveDropped adds n dropped videos for reason.
func (m *Metrics) ObserveDropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.VideosDropped.WithLabelValues(reason).Add(float64(n))
}

// ObserveLoaded adds n rows loaded into table.
func (m *Metrics) ObserveLoaded(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsLoaded.WithLabelValues(table).Add(float64(n))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, elapsed time.Duration, finishedAt time.Time, succeeded bool) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RunDuration.Observe(elapsed.Seconds())
	if succeeded {
		m.LastSuccess.Set(float64(finishedAt.Unix()))
	}
}
