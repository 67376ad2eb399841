package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jsh-team/chunkbroker/internal/broker"
)

// Metrics records registry transitions as Prometheus metrics
type Metrics struct {
	transitionsTotal *prometheus.CounterVec
	loadDuration     *prometheus.HistogramVec
	loadsInFlight    prometheus.Gauge

	// Warm pool metrics
	warmBytesTotal *prometheus.CounterVec
	warmFilesTotal *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		transitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkbroker_transitions_total",
				Help: "Total number of chunk state transitions",
			},
			[]string{"from", "to"},
		),
		loadDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunkbroker_load_duration_seconds",
				Help:    "Time from LOADING to a terminal state in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
		loadsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chunkbroker_loads_in_flight",
				Help: "Current number of chunks in LOADING",
			},
		),
		warmBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkbroker_warm_bytes_total",
				Help: "Total bytes fetched while warming chunk files",
			},
			[]string{"kind"},
		),
		warmFilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunkbroker_warm_files_total",
				Help: "Total chunk files fetched while warming",
			},
			[]string{"kind", "result"},
		),
	}
}

// Observe implements broker.Observer
func (m *Metrics) Observe(t broker.Transition) {
	m.transitionsTotal.WithLabelValues(t.From.String(), t.To.String()).Inc()

	if t.To == broker.Loading {
		m.loadsInFlight.Inc()
	}
	if t.From == broker.Loading && t.To != broker.Loading {
		m.loadsInFlight.Dec()
	}

	if t.From == broker.Loading && t.To.Terminal() {
		m.loadDuration.WithLabelValues(t.To.String()).Observe(t.Elapsed.Seconds())
	}
}

// RecordWarmFile records one fetched chunk file
func (m *Metrics) RecordWarmFile(kind string, bytes int64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.warmFilesTotal.WithLabelValues(kind, result).Inc()
	if bytes > 0 {
		m.warmBytesTotal.WithLabelValues(kind).Add(float64(bytes))
	}
}

// WriteTextfile writes every metric gathered by g in the text exposition
// format, for node_exporter's textfile collector
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}
