package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Scan results used as the "result" label.
const (
	ScanResultFound      = "found"
	ScanResultEmpty      = "empty"
	ScanResultUnreadable = "unreadable"
)

// Metrics provides Prometheus metrics for fact collection.
type Metrics struct {
	config MetricsConfig

	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram

	instancesDiscovered    prometheus.Gauge
	applicationsDiscovered prometheus.Gauge
	factsPublished         prometheus.Gauge

	storeWrites *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
// A disabled configuration yields a Metrics whose recorders are no-ops.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		scansTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Total number of instance directory scans",
			},
			[]string{"result"},
		),
		scanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "Duration of instance directory scans in seconds",
				Buckets:   buckets,
			},
		),
		instancesDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "instances_discovered",
				Help:      "Number of instances found by the last scan",
			},
		),
		applicationsDiscovered: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "applications_discovered",
				Help:      "Number of distinct applications found by the last scan",
			},
		),
		factsPublished: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "facts_published",
				Help:      "Number of facts registered by the last gathering",
			},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_writes_total",
				Help:      "Total number of fact history writes",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.scansTotal,
		m.scanDuration,
		m.instancesDiscovered,
		m.applicationsDiscovered,
		m.factsPublished,
		m.storeWrites,
	)

	return m, nil
}

// RecordScan records a finished scan.
func (m *Metrics) RecordScan(result string, duration time.Duration, instances, applications int) {
	if m.scansTotal == nil {
		return
	}
	m.scansTotal.WithLabelValues(result).Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.instancesDiscovered.Set(float64(instances))
	m.applicationsDiscovered.Set(float64(applications))
}

// SetFactsPublished sets the number of facts in the last gathering.
func (m *Metrics) SetFactsPublished(count float64) {
	if m.factsPublished == nil {
		return
	}
	m.factsPublished.Set(count)
}

// RecordStoreWrite records a fact history write.
func (m *Metrics) RecordStoreWrite(err error) {
	if m.storeWrites == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.storeWrites.WithLabelValues(result).Inc()
}

// WriteTextfile writes the current metrics to path in the format read by
// the node_exporter textfile collector. Disabled metrics write nothing.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer measures an operation.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
