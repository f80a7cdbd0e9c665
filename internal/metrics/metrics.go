package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for PhishGuard
type Metrics struct {
	// Campaign counters
	CampaignsLaunchedTotal prometheus.Counter
	TargetsEnrolledTotal   prometheus.Counter

	// Click counters
	ClicksTotal *prometheus.CounterVec // labelled by outcome

	// Delivery counters/gauges
	DeliveriesTotal   *prometheus.CounterVec // labelled by result
	DeliveryQueueSize prometheus.Gauge
	DeliveryDeferred  prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	// System metrics
	UptimeSeconds    prometheus.Gauge
	Goroutines       prometheus.Gauge
	StorageUsedBytes prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		CampaignsLaunchedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phishguard_campaigns_launched_total",
				Help: "Total number of launched campaigns",
			},
		),
		TargetsEnrolledTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "phishguard_targets_enrolled_total",
				Help: "Total number of recipients enrolled across all campaigns",
			},
		),
		ClicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishguard_clicks_total",
				Help: "Total number of tracking link resolutions",
			},
			[]string{"outcome"},
		),
		DeliveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishguard_deliveries_total",
				Help: "Total number of finished delivery attempts",
			},
			[]string{"result"},
		),
		DeliveryQueueSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishguard_delivery_queue_size",
				Help: "Number of pending and deferred delivery jobs",
			},
		),
		DeliveryDeferred: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishguard_delivery_deferred",
				Help: "Number of delivery jobs awaiting retry",
			},
		),
		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phishguard_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phishguard_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishguard_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishguard_goroutines",
				Help: "Number of active goroutines",
			},
		),
		StorageUsedBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "phishguard_storage_used_bytes",
				Help: "BoltDB file size in bytes",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.CampaignsLaunchedTotal,
		m.TargetsEnrolledTotal,
		m.ClicksTotal,
		m.DeliveriesTotal,
		m.DeliveryQueueSize,
		m.DeliveryDeferred,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.UptimeSeconds,
		m.Goroutines,
		m.StorageUsedBytes,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncCampaignsLaunched increments the launched campaign counters
func IncCampaignsLaunched(targets int) {
	m := Global()
	if m != nil {
		m.CampaignsLaunchedTotal.Inc()
		m.TargetsEnrolledTotal.Add(float64(targets))
	}
}

// IncClicks increments the click resolution counter
func IncClicks(outcome string) {
	m := Global()
	if m != nil {
		m.ClicksTotal.WithLabelValues(outcome).Inc()
	}
}

// IncDeliveries increments the finished delivery counter
func IncDeliveries(result string) {
	m := Global()
	if m != nil {
		m.DeliveriesTotal.WithLabelValues(result).Inc()
	}
}
