// Package metrics collects runtime statistics of scans and matching runs.
// Counters and histograms live in a Prometheus registry; per-operation timing
// aggregates are also kept in memory for log summaries.
package metrics

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names for timing.
const (
	OpScanFile = "scan_file"
	OpSearch   = "search"
	OpMatch    = "match"
	OpAssemble = "assemble"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot is the collector state at a point in time.
type Snapshot struct {
	UptimeSeconds float64                       `json:"uptime_seconds"`
	Operations    map[string]*OperationSnapshot `json:"operations"`
}

// Collector aggregates runtime statistics. All methods are safe for
// concurrent use and for use on a nil *Collector, which records nothing.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	registry     *prometheus.Registry
	filesScanned prometheus.Counter
	scanFailures prometheus.Counter
	hits         prometheus.Counter
	records      *prometheus.CounterVec
	durations    *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		registry:  prometheus.NewRegistry(),
		filesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdfmatch_files_scanned_total",
			Help: "Documents opened by folder scans.",
		}),
		scanFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdfmatch_scan_failures_total",
			Help: "Documents that could not be read during folder scans.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pdfmatch_scan_hits_total",
			Help: "Documents in which a searched identifier was found.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pdfmatch_records_total",
			Help: "Records processed by matching runs, by outcome.",
		}, []string{"result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pdfmatch_operation_duration_seconds",
			Help:    "Duration of scan and match operations.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"operation"}),
	}
	c.registry.MustRegister(c.filesScanned, c.scanFailures, c.hits, c.records, c.durations)
	return c
}

// Registry exposes the Prometheus registry, for /metrics handlers and
// registering extra collectors.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.durations.WithLabelValues(op).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// FileScanned records one scanned document and how long it took.
func (c *Collector) FileScanned(duration time.Duration, found bool) {
	if c == nil {
		return
	}
	c.filesScanned.Inc()
	if found {
		c.hits.Inc()
	}
	c.RecordTiming(OpScanFile, duration)
}

// ScanFailed records a document that could not be read.
func (c *Collector) ScanFailed() {
	if c == nil {
		return
	}
	c.scanFailures.Inc()
}

// RecordsMatched records the outcome counts of one matching run.
func (c *Collector) RecordsMatched(matched, unmatched int) {
	if c == nil {
		return
	}
	c.records.WithLabelValues("matched").Add(float64(matched))
	c.records.WithLabelValues("unmatched").Add(float64(unmatched))
}

// WriteTextfile writes the registry in the Prometheus text format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all timings.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{Operations: map[string]*OperationSnapshot{}}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	ops := make(map[string]*OperationSnapshot, len(c.ops))
	for name, m := range c.ops {
		if s := snapshotOp(m); s != nil {
			ops[name] = s
		}
	}
	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Operations:    ops,
	}
}
