// Package metrics exposes per-run reassembly statistics in the Prometheus text format.
package metrics

import (
	"time"

	"ddos-reassembler/internal/reassembler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Registry struct {
	FingerprintsLoaded  prometheus.Counter
	ObservationsLoaded  prometheus.Counter
	FingerprintsDropped prometheus.Counter
	Runs                *prometheus.CounterVec
	RunDuration         prometheus.Histogram

	IntermediateNodes *prometheus.GaugeVec
	PctSpoofed        prometheus.Gauge
	NrSources         prometheus.Gauge

	registry *prometheus.Registry
}

func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{registry: reg}

	r.FingerprintsLoaded = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "reassembler_fingerprints_loaded_total",
		Help: "Fingerprint documents read from the input",
	})
	r.ObservationsLoaded = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "reassembler_observations_total",
		Help: "Observation rows produced by normalization",
	})
	r.FingerprintsDropped = promauto.With(reg).NewCounter(prometheus.CounterOpts{
		Name: "reassembler_fingerprints_dropped_total",
		Help: "Fingerprint keys removed to simulate capture loss",
	})
	r.Runs = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "reassembler_runs_total",
		Help: "Reassembly runs by outcome",
	}, []string{"status"})
	r.RunDuration = promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
		Name:    "reassembler_run_duration_seconds",
		Help:    "Wall time of a reassembly run",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	})

	r.IntermediateNodes = promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "reassembler_intermediate_nodes",
		Help: "Intermediate nodes of the last summary by filter decision",
	}, []string{"decision"})
	r.PctSpoofed = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "reassembler_pct_spoofed",
		Help: "Share of spoofed source addresses at the target in the last summary",
	})
	r.NrSources = promauto.With(reg).NewGauge(prometheus.GaugeOpts{
		Name: "reassembler_sources",
		Help: "Distinct source addresses at the target in the last summary",
	})

	return r
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) RecordLoad(fingerprints, observations int) {
	r.FingerprintsLoaded.Add(float64(fingerprints))
	r.ObservationsLoaded.Add(float64(observations))
}

func (r *Registry) RecordDrop(keys int) {
	r.FingerprintsDropped.Add(float64(keys))
}

// RecordSummary stores the result of a successful run.
func (r *Registry) RecordSummary(s *reassembler.Summary, elapsed time.Duration) {
	r.Runs.WithLabelValues("success").Inc()
	r.RunDuration.Observe(elapsed.Seconds())
	r.IntermediateNodes.WithLabelValues("retained").Set(float64(s.IntermediateNodes.NrIntermediateNodes))
	r.IntermediateNodes.WithLabelValues("discarded").Set(float64(s.IntermediateNodes.Discarded))
	r.PctSpoofed.Set(s.Sources.PctSpoofed)
	r.NrSources.Set(float64(s.Sources.NrSources))
}

func (r *Registry) RecordFailure(elapsed time.Duration) {
	r.Runs.WithLabelValues("failure").Inc()
	r.RunDuration.Observe(elapsed.Seconds())
}

// WriteTextfile writes all metrics atomically in the node_exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
