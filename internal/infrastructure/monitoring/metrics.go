package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
//
// Every recorder is safe to call on a nil *Metrics so components can take
// an optional collector without guarding each call site.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Execution context metrics
	LoopTasks    *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryEntries prometheus.Gauge
	Invocations     *prometheus.CounterVec

	// Element metrics
	Mutations     *prometheus.CounterVec
	Flushes       prometheus.Counter
	UIMethodCalls *prometheus.CounterVec

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration prometheus.Histogram

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API.
type Snapshot struct {
	Flushes             int64 `json:"flushes"`
	Mutations           int64 `json:"mutations"`
	RegistryEntries     int64 `json:"registry_entries"`
	UnresolvedCalls     int64 `json:"unresolved_calls"`
	UIMethodFailures    int64 `json:"ui_method_failures"`
	ScriptRuns          int64 `json:"script_runs"`
	TotalRequests       int64 `json:"total_requests"`
	ActiveWSConnections int64 `json:"active_ws_connections"`
}

// NewMetrics creates a new metrics collector on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "motionbridge_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		// Execution context metrics
		LoopTasks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_loop_tasks_total",
				Help: "Total number of tasks and microtasks run per execution context",
			},
			[]string{"loop"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "motionbridge_loop_task_duration_seconds",
				Help:    "Task duration per execution context in seconds",
				Buckets: []float64{.0001, .0005, .001, .004, .008, .016, .033, .1, .5},
			},
			[]string{"loop"},
		),

		// Registry metrics
		RegistryEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "motionbridge_registry_entries",
				Help: "Number of callables currently registered",
			},
		),
		Invocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_registry_invocations_total",
				Help: "Handle invocations by resolution result",
			},
			[]string{"result"},
		),

		// Element metrics
		Mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_element_mutations_total",
				Help: "Native writes issued by element views",
			},
			[]string{"op"},
		),
		Flushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "motionbridge_element_flushes_total",
				Help: "Coalesced element tree flushes",
			},
		),
		UIMethodCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_ui_method_calls_total",
				Help: "Native UI method invocations by method and status",
			},
			[]string{"method", "status"},
		),

		// Script metrics
		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_script_runs_total",
				Help: "Main-thread script executions by status",
			},
			[]string{"status"},
		),
		ScriptDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "motionbridge_script_duration_seconds",
				Help:    "Main-thread script execution time in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "motionbridge_ws_connections_active",
				Help: "Number of active flush stream connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "motionbridge_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	return m
}

// Registry returns the Prometheus registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.mu.Unlock()
}

// RecordLoopTask records one task run on an execution context.
func (m *Metrics) RecordLoopTask(loop string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LoopTasks.WithLabelValues(loop).Inc()
	m.TaskDuration.WithLabelValues(loop).Observe(duration.Seconds())
}

// SetRegistryEntries sets the number of registered callables.
func (m *Metrics) SetRegistryEntries(count int) {
	if m == nil {
		return
	}
	m.RegistryEntries.Set(float64(count))
	m.mu.Lock()
	m.snapshot.RegistryEntries = int64(count)
	m.mu.Unlock()
}

// RecordInvocation records a handle invocation and whether it resolved.
func (m *Metrics) RecordInvocation(resolved bool) {
	if m == nil {
		return
	}
	result := "resolved"
	if !resolved {
		result = "unresolved"
		m.mu.Lock()
		m.snapshot.UnresolvedCalls++
		m.mu.Unlock()
	}
	m.Invocations.WithLabelValues(result).Inc()
}

// RecordMutation records a native write ("attribute", "style", "invoke").
func (m *Metrics) RecordMutation(op string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(op).Inc()
	m.mu.Lock()
	m.snapshot.Mutations++
	m.mu.Unlock()
}

// RecordFlush records a coalesced flush.
func (m *Metrics) RecordFlush() {
	if m == nil {
		return
	}
	m.Flushes.Inc()
	m.mu.Lock()
	m.snapshot.Flushes++
	m.mu.Unlock()
}

// RecordUIMethod records a native UI method result.
func (m *Metrics) RecordUIMethod(method string, ok bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "failed"
		m.mu.Lock()
		m.snapshot.UIMethodFailures++
		m.mu.Unlock()
	}
	m.UIMethodCalls.WithLabelValues(method, status).Inc()
}

// RecordScriptRun records a script execution.
func (m *Metrics) RecordScriptRun(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScriptRuns.WithLabelValues(status).Inc()
	m.ScriptDuration.Observe(duration.Seconds())
	m.mu.Lock()
	m.snapshot.ScriptRuns++
	m.mu.Unlock()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveWSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveWSConnections--
	m.mu.Unlock()
}

// Snapshot returns a copy of the current values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
