package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/shared/id"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Sandbox metrics
	RunsActive     prometheus.Gauge
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	SignalsTotal   *prometheus.CounterVec
	SignalsDropped *prometheus.CounterVec

	// Transpiler metrics
	TranspileTotal    *prometheus.CounterVec
	TranspileDuration prometheus.Histogram

	// Store metrics
	StoreCalls    *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	TotalErrors       int64   `json:"total_errors"`
	TotalRuns         int64   `json:"total_runs"`
	FaultedRuns       int64   `json:"faulted_runs"`
	ActiveRuns        int64   `json:"active_runs"`
	ActiveConnections int64   `json:"active_connections"`
	AvgRequestSeconds float64 `json:"avg_request_seconds"`
	UptimeSeconds     float64 `json:"uptime_seconds"`

	totalDuration float64
	requestCount  int64
}

var _ sandbox.Observer = (*Metrics)(nil)

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Sandbox metrics
		RunsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_runs_active",
				Help: "Number of execution contexts currently running",
			},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_runs_total",
				Help: "Total number of finished runs by terminal state",
			},
			[]string{"state"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_run_duration_seconds",
				Help:    "Execution context lifetime in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SignalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_signals_accepted_total",
				Help: "Signals converted to log entries",
			},
			[]string{"kind"},
		),
		SignalsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_signals_dropped_total",
				Help: "Signals rejected by the runner listener",
			},
			[]string{"reason"},
		),

		// Transpiler metrics
		TranspileTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_transpile_total",
				Help: "Total number of transpilations",
			},
			[]string{"result"},
		),
		TranspileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "playground_transpile_duration_seconds",
				Help:    "Transpilation duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
			},
		),

		// Store metrics
		StoreCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_store_calls_total",
				Help: "Total number of state store calls",
			},
			[]string{"method", "status"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "playground_store_duration_seconds",
				Help:    "State store call duration in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .5, 1},
			},
			[]string{"method"},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "playground_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "playground_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "playground_uptime_seconds",
			Help: "Backend uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.totalDuration += duration.Seconds()
	m.snapshot.requestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RunStarted implements sandbox.Observer
func (m *Metrics) RunStarted(id.RunID) {
	m.RunsActive.Inc()
	m.mu.Lock()
	m.snapshot.ActiveRuns++
	m.mu.Unlock()
}

// RunFinished implements sandbox.Observer
func (m *Metrics) RunFinished(_ id.RunID, state sandbox.State, duration time.Duration) {
	m.RunsActive.Dec()
	m.RunsTotal.WithLabelValues(state.String()).Inc()
	m.RunDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ActiveRuns--
	m.snapshot.TotalRuns++
	if state == sandbox.StateFaulted {
		m.snapshot.FaultedRuns++
	}
	m.mu.Unlock()
}

// SignalAccepted implements sandbox.Observer
func (m *Metrics) SignalAccepted(kind sandbox.Kind) {
	m.SignalsTotal.WithLabelValues(string(kind)).Inc()
}

// SignalDropped implements sandbox.Observer
func (m *Metrics) SignalDropped(reason string) {
	m.SignalsDropped.WithLabelValues(reason).Inc()
}

// RecordTranspile records one transpilation
func (m *Metrics) RecordTranspile(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "diagnostics"
	}
	m.TranspileTotal.WithLabelValues(result).Inc()
	m.TranspileDuration.Observe(duration.Seconds())
}

// RecordStoreCall records a state store call
func (m *Metrics) RecordStoreCall(method, status string, duration time.Duration) {
	m.StoreCalls.WithLabelValues(method, status).Inc()
	m.StoreDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// Snapshot returns current values for the JSON API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.requestCount > 0 {
		s.AvgRequestSeconds = s.totalDuration / float64(s.requestCount)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
