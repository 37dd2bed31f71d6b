package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for tfsync runs.
type Metrics struct {
	config MetricsConfig

	// Run metrics
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	// Resource metrics
	resourcesProcessed *prometheus.CounterVec
	objectsReconciled  *prometheus.CounterVec

	// External command metrics
	commandsExecuted *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	cacheHits        *prometheus.CounterVec

	// Error metrics
	errorsByKind *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// No-op metrics instance
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

		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of runs completed",
			},
			[]string{"command", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of run execution in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),

		resourcesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resources_processed_total",
				Help:      "Total number of resources processed by the scheduler",
			},
			[]string{"resource", "status"},
		),
		objectsReconciled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "objects_reconciled_total",
				Help:      "Total number of objects written to storage documents",
			},
			[]string{"resource", "action"},
		),

		commandsExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_executed_total",
				Help:      "Total number of external commands executed",
			},
			[]string{"program", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of external commands in seconds",
				Buckets:   buckets,
			},
			[]string{"program"},
		),
		cacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "discovery_cache_hits_total",
				Help:      "Total number of discovery commands served from cache",
			},
			[]string{"resource"},
		),

		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		m.runsCompleted,
		m.runDuration,
		m.resourcesProcessed,
		m.objectsReconciled,
		m.commandsExecuted,
		m.commandDuration,
		m.cacheHits,
		m.errorsByKind,
	)

	return m, nil
}

// Run Metrics

// RecordRunCompleted records a completed run with its status and duration.
func (m *Metrics) RecordRunCompleted(command, status string, duration time.Duration) {
	if m.runsCompleted == nil {
		return
	}
	m.runsCompleted.WithLabelValues(command, status).Inc()
	m.runDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// Resource Metrics

// RecordResource records one resource processed by the scheduler.
func (m *Metrics) RecordResource(resource, status string) {
	if m.resourcesProcessed == nil {
		return
	}
	m.resourcesProcessed.WithLabelValues(resource, status).Inc()
}

// RecordObject records one object written with the given action.
func (m *Metrics) RecordObject(resource, action string) {
	if m.objectsReconciled == nil {
		return
	}
	m.objectsReconciled.WithLabelValues(resource, action).Inc()
}

// Command Metrics

// RecordCommand records an external command with its duration.
func (m *Metrics) RecordCommand(program string, duration time.Duration, err error) {
	if m.commandsExecuted == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.commandsExecuted.WithLabelValues(program, status).Inc()
	m.commandDuration.WithLabelValues(program).Observe(duration.Seconds())
}

// RecordCacheHit records a discovery command served from cache.
func (m *Metrics) RecordCacheHit(resource string) {
	if m.cacheHits == nil {
		return
	}
	m.cacheHits.WithLabelValues(resource).Inc()
}

// Error Metrics

// RecordError records an error by kind.
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// Registry returns the registry holding the metrics, nil when disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current metrics to the configured textfile.
func (m *Metrics) WriteTextfile() error {
	if m.registry == nil || m.config.Textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(m.config.Textfile, m.registry)
}

// Timer provides a convenient way to time operations.
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
