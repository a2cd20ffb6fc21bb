// Package metrics records run statistics with Prometheus.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/seenimoa/form13f/internal/reconcile"
)

// Recorder holds the run's collectors on a private registry.
type Recorder struct {
	registry        *prometheus.Registry
	classifications *prometheus.CounterVec
	fetches         *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	consolidated    prometheus.Gauge
}

// New creates a Recorder with its own registry. Every classification
// series starts at zero so a run without patches still exports one.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	r := &Recorder{
		registry: reg,
		classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "form13f_classifications_total",
				Help: "Filings classified by the reconciliation engine",
			},
			[]string{"class"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "form13f_fetch_total",
				Help: "EDGAR requests by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		fetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "form13f_fetch_duration_seconds",
				Help:    "Duration of EDGAR requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		consolidated: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "form13f_consolidated_rows",
				Help: "Rows in the last consolidated output",
			},
		),
	}
	for _, c := range reconcile.Classes {
		r.classifications.WithLabelValues(string(c))
	}
	return r
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveFetch records one EDGAR request.
func (r *Recorder) ObserveFetch(kind, outcome string, elapsed time.Duration) {
	r.fetches.WithLabelValues(kind, outcome).Inc()
	if outcome != "hit" {
		r.fetchLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	}
}

// RecordClassification counts one filing decision.
func (r *Recorder) RecordClassification(class string) {
	r.classifications.WithLabelValues(class).Inc()
}

// SetConsolidatedRows records the size of the final table.
func (r *Recorder) SetConsolidatedRows(n int) {
	r.consolidated.Set(float64(n))
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
