package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hejijunhao/oktify/internal/connector"
)

// Row outcomes recorded by ObserveRows.
const (
	RowEmitted    = "emitted"
	RowSkipped    = "skipped"
	RowDuplicate  = "duplicate"
	RowIrrelevant = "irrelevant"
)

// Metrics holds the collectors of a single run on their own registry, so
// concurrent runs in one process never share counters.
type Metrics struct {
	Registry *prometheus.Registry

	PagesTotal    prometheus.Counter
	EventsTotal   prometheus.Counter
	RetryTotal    *prometheus.CounterVec
	RetryWait     prometheus.Histogram
	DroppedTotal  *prometheus.CounterVec
	RowsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Gauge
	RunSuccess    prometheus.Gauge
	LastRunUnixTS prometheus.Gauge
}

var _ connector.Observer = (*Metrics)(nil)

// New creates the run collectors and registers them.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		PagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oktify_pages_fetched_total",
			Help: "System Log pages fetched",
		}),
		EventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oktify_events_fetched_total",
			Help: "Raw events received",
		}),
		RetryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oktify_retry_total",
			Help: "Page request retries",
		}, []string{"reason"}),
		RetryWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oktify_retry_wait_seconds",
			Help:    "Backoff wait before a retry",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 60},
		}),
		DroppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oktify_events_dropped_total",
			Help: "Raw events dropped before classification",
		}, []string{"reason"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oktify_rows_total",
			Help: "Events by category and outcome",
		}, []string{"category", "outcome"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oktify_run_duration_seconds",
			Help: "Wall time of the run",
		}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oktify_run_success",
			Help: "1 if the run completed, 0 if it aborted",
		}),
		LastRunUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "oktify_run_timestamp_seconds",
			Help: "Unix time the run finished",
		}),
	}
	m.Registry.MustRegister(
		m.PagesTotal, m.EventsTotal, m.RetryTotal, m.RetryWait, m.DroppedTotal,
		m.RowsTotal, m.RunDuration, m.RunSuccess, m.LastRunUnixTS,
	)
	return m
}

func (m *Metrics) PageFetched(events int) {
	m.PagesTotal.Inc()
	m.EventsTotal.Add(float64(events))
}

func (m *Metrics) RetryScheduled(reason string, wait time.Duration) {
	m.RetryTotal.WithLabelValues(reason).Inc()
	m.RetryWait.Observe(wait.Seconds())
}

func (m *Metrics) EventDropped(reason string) {
	m.DroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveRows adds n events with the given outcome for a category.
func (m *Metrics) ObserveRows(category, outcome string, n int) {
	m.RowsTotal.WithLabelValues(category, outcome).Add(float64(n))
}

// RunFinished records the run duration and result.
func (m *Metrics) RunFinished(d time.Duration, ok bool, now time.Time) {
	m.RunDuration.Set(d.Seconds())
	if ok {
		m.RunSuccess.Set(1)
	} else {
		m.RunSuccess.Set(0)
	}
	m.LastRunUnixTS.Set(float64(now.Unix()))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
