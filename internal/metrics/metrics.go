// Package metrics tracks per-run counters and timings for coursesync.
//
// Metrics live in their own Prometheus registry so a run can be exported to a
// node_exporter textfile collector once it finishes. Counters track pages fetched
// and courses by outcome; histograms track page fetch and store call durations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace prefixes every metric name.
	Namespace = "coursesync"
)

// Page results
const (
	PageFetched = "fetched"
	PageFailed  = "failed"
)

// Metrics holds all Prometheus collectors for one run
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal       *prometheus.CounterVec
	CoursesTotal     *prometheus.CounterVec
	FetchDuration    prometheus.Histogram
	StoreDuration    *prometheus.HistogramVec
	LastRunTimestamp prometheus.Gauge
	LastRunDuration  prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_total",
			Help:      "Calendar pages processed, by result.",
		}, []string{"result"}),
		CoursesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "courses_total",
			Help:      "Courses extracted, by sync outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "page_fetch_duration_seconds",
			Help:      "Time spent fetching and parsing one calendar page.",
			Buckets:   prometheus.DefBuckets,
		}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "store_call_duration_seconds",
			Help:      "Time spent in store calls, by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		LastRunTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		LastRunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
}

// Registry returns the registry holding the run's collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObservePage records one page result and how long it took
func (m *Metrics) ObservePage(result string, duration time.Duration) {
	m.PagesTotal.WithLabelValues(result).Inc()
	m.FetchDuration.Observe(duration.Seconds())
}

// ObserveCourse counts one course outcome
func (m *Metrics) ObserveCourse(outcome string) {
	m.CoursesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStore records the duration of one store call
func (m *Metrics) ObserveStore(operation string, duration time.Duration) {
	m.StoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// FinishRun stamps the run end time and duration
func (m *Metrics) FinishRun(finished time.Time, duration time.Duration) {
	m.LastRunTimestamp.Set(float64(finished.Unix()))
	m.LastRunDuration.Set(duration.Seconds())
}

// WriteTextfile writes all metrics in the text exposition format, suitable for the
// node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
