package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File and trip outcome labels.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"

	TripSaved    = "saved"
	TripRejected = "rejected"
	TripFailed   = "failed"
)

// Metrics counts one ingestion run. Each Metrics owns its registry so runs
// and tests do not share state.
type Metrics struct {
	Registry     *prometheus.Registry
	Files        *prometheus.CounterVec
	Trips        *prometheus.CounterVec
	Synthesized  *prometheus.CounterVec
	FileDuration prometheus.Histogram
	LastRun      prometheus.Gauge
}

// NewMetrics registers the ingestion metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripingest_files_total",
			Help: "Discovered files by outcome.",
		}, []string{"outcome"}),
		Trips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripingest_trips_total",
			Help: "Trip segments by result.",
		}, []string{"result"}),
		Synthesized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tripingest_synthesized_fields_total",
			Help: "Core fields generated because the source lacked them.",
		}, []string{"field"}),
		FileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tripingest_file_duration_seconds",
			Help:    "Time spent processing one file.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~163s
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tripingest_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
	}
	m.Registry.MustRegister(m.Files, m.Trips, m.Synthesized, m.FileDuration, m.LastRun)
	return m
}

// ObserveFile records one file's outcome and processing time.
func (m *Metrics) ObserveFile(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(outcome).Inc()
	m.FileDuration.Observe(d.Seconds())
}

// ObserveTrip records one segment's result.
func (m *Metrics) ObserveTrip(result string) {
	if m == nil {
		return
	}
	m.Trips.WithLabelValues(result).Inc()
}

// ObserveSynthesized counts generated fields.
func (m *Metrics) ObserveSynthesized(fields ...string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.Synthesized.WithLabelValues(f).Inc()
	}
}

// WriteTextfile stamps the run end time and writes the registry in the
// node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string, finished time.Time) error {
	m.LastRun.Set(float64(finished.Unix()))
	return prometheus.WriteToTextfile(path, m.Registry)
}
