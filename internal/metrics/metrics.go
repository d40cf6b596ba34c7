// Package metrics records run statistics for a scan and writes them in the
// Prometheus textfile format.
package metrics

import (
	"github.com/bimmerbailey/herring/internal/cluster"
	"github.com/bimmerbailey/herring/internal/parser"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "herring"

// Recorder holds the collectors for one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	records   prometheus.Counter
	skipped   prometheus.Counter
	merges    prometheus.Counter
	clusters  prometheus.Gauge
	frequency prometheus.Histogram
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Total number of log records clustered.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Total number of lines that could not be parsed.",
		}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cluster_merges_total",
			Help:      "Total number of records merged into an existing cluster.",
		}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clusters",
			Help:      "Number of distinct clusters.",
		}),
		frequency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_frequency",
			Help:      "Distribution of cluster sizes.",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 500, 1000},
		}),
	}
	r.registry.MustRegister(r.records, r.skipped, r.merges, r.clusters, r.frequency)
	return r
}

// ObserveStats adds the parser counts for one input.
func (r *Recorder) ObserveStats(stats parser.Stats) {
	r.records.Add(float64(stats.Records))
	r.skipped.Add(float64(stats.Skipped))
}

// ObserveIngest counts merges as records are clustered.
func (r *Recorder) ObserveIngest(res cluster.Result) {
	if res.Cluster != nil && !res.Created {
		r.merges.Inc()
	}
}

// ObservePatterns records the final cluster table.
func (r *Recorder) ObservePatterns(patterns []cluster.Pattern) {
	r.clusters.Set(float64(len(patterns)))
	for _, p := range patterns {
		r.frequency.Observe(float64(p.Cluster.Frequency()))
	}
}

// WriteTextfile writes the registry to path for the node exporter textfile
// collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
