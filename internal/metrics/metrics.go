// Package metrics provides Prometheus metrics for scans and snapshot writes.
//
// Each Metrics value owns its registry so independent scanners (and tests)
// never collide. A nil *Metrics is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons reported by the line parser
const (
	RejectNoTab    = "no_tab"
	RejectBadSize  = "bad_size"
	RejectTooSmall = "too_small"
	RejectExcluded = "excluded"
)

// Metrics holds the collectors for one scanner/store pair.
type Metrics struct {
	registry *prometheus.Registry

	linesParsed        prometheus.Counter
	linesRejected      *prometheus.CounterVec
	restrictedEntries  *prometheus.CounterVec
	flushesTotal       prometheus.Counter
	flushDuration      prometheus.Histogram
	snapshotWrites     *prometheus.CounterVec
	globalIndexEntries prometheus.Gauge
	scanDuration       prometheus.Gauge
	scansTotal         *prometheus.CounterVec
}

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		linesParsed: factory.NewCounter(prometheus.CounterOpts{
			Name: "diskindex_lines_parsed_total",
			Help: "Size-listing lines accepted by the parser",
		}),
		linesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diskindex_lines_rejected_total",
			Help: "Size-listing lines rejected by the parser",
		}, []string{"reason"}),
		restrictedEntries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diskindex_restricted_entries_total",
			Help: "Paths reported as inaccessible by the size-listing tool",
		}, []string{"reason"}),
		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "diskindex_flushes_total",
			Help: "Buffered scan state flushes to the snapshot store",
		}),
		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "diskindex_flush_duration_seconds",
			Help:    "Time to write one flush batch",
			Buckets: prometheus.DefBuckets,
		}),
		snapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diskindex_snapshot_writes_total",
			Help: "Directory snapshot merge-writes",
		}, []string{"status"}),
		globalIndexEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "diskindex_global_index_entries",
			Help: "Entries in the last persisted global search index",
		}),
		scanDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "diskindex_last_scan_duration_seconds",
			Help: "Duration of the last scan",
		}),
		scansTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "diskindex_scans_total",
			Help: "Completed scans",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) LineParsed() {
	if m == nil {
		return
	}
	m.linesParsed.Inc()
}

func (m *Metrics) LineRejected(reason string) {
	if m == nil {
		return
	}
	m.linesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Restricted(reason string) {
	if m == nil {
		return
	}
	m.restrictedEntries.WithLabelValues(reason).Inc()
}

// Flushed records one completed flush batch.
func (m *Metrics) Flushed(d time.Duration) {
	if m == nil {
		return
	}
	m.flushesTotal.Inc()
	m.flushDuration.Observe(d.Seconds())
}

func (m *Metrics) SnapshotWritten(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.snapshotWrites.WithLabelValues(status).Inc()
}

// ScanFinished records the outcome of a scan and the size of its index.
func (m *Metrics) ScanFinished(d time.Duration, indexEntries int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.globalIndexEntries.Set(float64(indexEntries))
	}
	m.scanDuration.Set(d.Seconds())
	m.scansTotal.WithLabelValues(status).Inc()
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
