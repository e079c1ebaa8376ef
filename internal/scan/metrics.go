package scan

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors updated during a scan.
type Metrics struct {
	registry *prometheus.Registry

	files       prometheus.Counter
	bytesRead   prometheus.Counter
	readErrors  prometheus.Counter
	walkErrors  prometheus.Counter
	entries     *prometheus.CounterVec
	fileSize    prometheus.Histogram
	scanSeconds prometheus.Gauge
	addresses   prometheus.Gauge
}

// NewMetrics registers the scan collectors on a fresh registry.
func NewMetrics(backend string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"backend": backend}
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		files: f.NewCounter(prometheus.CounterOpts{
			Name:        "mailaddrs_files_read_total",
			Help:        "Mail files read successfully",
			ConstLabels: labels,
		}),
		bytesRead: f.NewCounter(prometheus.CounterOpts{
			Name:        "mailaddrs_bytes_read_total",
			Help:        "Bytes read from mail files",
			ConstLabels: labels,
		}),
		readErrors: f.NewCounter(prometheus.CounterOpts{
			Name:        "mailaddrs_read_errors_total",
			Help:        "Mail files that could not be read",
			ConstLabels: labels,
		}),
		walkErrors: f.NewCounter(prometheus.CounterOpts{
			Name:        "mailaddrs_walk_errors_total",
			Help:        "Directories or entries skipped during traversal",
			ConstLabels: labels,
		}),
		entries: f.NewCounterVec(prometheus.CounterOpts{
			Name:        "mailaddrs_address_entries_total",
			Help:        "Address entries parsed by header field",
			ConstLabels: labels,
		}, []string{"field"}),
		fileSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:        "mailaddrs_file_size_bytes",
			Help:        "Size of mail files read",
			Buckets:     prometheus.ExponentialBuckets(512, 4, 10), // 512B to ~128MB
			ConstLabels: labels,
		}),
		scanSeconds: f.NewGauge(prometheus.GaugeOpts{
			Name:        "mailaddrs_scan_duration_seconds",
			Help:        "Wall-clock duration of the last scan",
			ConstLabels: labels,
		}),
		addresses: f.NewGauge(prometheus.GaugeOpts{
			Name:        "mailaddrs_unique_addresses",
			Help:        "Distinct addresses after the last scan",
			ConstLabels: labels,
		}),
	}
}

// WriteTextfile writes the current metric values in the node_exporter
// textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

// Registry exposes the underlying registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
