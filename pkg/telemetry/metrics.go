package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for Loadout.
type Metrics struct {
	config MetricsConfig

	// Assembly metrics
	assembliesTotal  *prometheus.CounterVec
	assemblyDuration *prometheus.HistogramVec

	// Profile metrics
	profileLoads    *prometheus.CounterVec
	profileCompiles *prometheus.CounterVec
	compileDuration *prometheus.HistogramVec

	// Resolution metrics
	moduleResolutions *prometheus.CounterVec
	resolutionMisses  *prometheus.CounterVec

	// Scope metrics
	scopeReads  *prometheus.CounterVec
	scopeWrites *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// Watch metrics
	watchReloads   *prometheus.CounterVec
	activeWatchers prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Assembly metrics
		assembliesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assemblies_total",
				Help:      "Total number of plan assemblies",
			},
			[]string{"status"},
		),
		assemblyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "assembly_duration_seconds",
				Help:      "Duration of plan assembly in seconds",
				Buckets:   buckets,
			},
			[]string{"status"},
		),

		// Profile metrics
		profileLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_loads_total",
				Help:      "Total number of profile loads",
			},
			[]string{"origin", "status"},
		),
		profileCompiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_compiles_total",
				Help:      "Total number of profile compilations",
			},
			[]string{"status"},
		),
		compileDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "profile_compile_duration_seconds",
				Help:      "Duration of profile compilation in seconds",
				Buckets:   buckets,
			},
			[]string{"profile"},
		),

		// Resolution metrics
		moduleResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_resolutions_total",
				Help:      "Total number of module source resolutions by winning layer",
			},
			[]string{"layer"},
		),
		resolutionMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_resolution_misses_total",
				Help:      "Total number of module resolutions that matched no layer",
			},
			[]string{"module"},
		),

		// Scope metrics
		scopeReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scope_reads_total",
				Help:      "Total number of scope settings reads",
			},
			[]string{"scope"},
		),
		scopeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scope_writes_total",
				Help:      "Total number of scope settings writes",
			},
			[]string{"scope"},
		),

		// Error metrics
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),

		// Watch metrics
		watchReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Total number of watch-triggered reassemblies",
			},
			[]string{"trigger"},
		),
		activeWatchers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_watchers",
				Help:      "Current number of active file watchers",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.assembliesTotal,
		m.assemblyDuration,
		m.profileLoads,
		m.profileCompiles,
		m.compileDuration,
		m.moduleResolutions,
		m.resolutionMisses,
		m.scopeReads,
		m.scopeWrites,
		m.errorsByClass,
		m.watchReloads,
		m.activeWatchers,
	)

	return m, nil
}

// Assembly Metrics

// RecordAssembly records a completed plan assembly with its status and duration.
func (m *Metrics) RecordAssembly(status string, duration time.Duration) {
	if m.assembliesTotal == nil {
		return
	}
	m.assembliesTotal.WithLabelValues(status).Inc()
	m.assemblyDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// Profile Metrics

// RecordProfileLoad records a profile load attempt.
func (m *Metrics) RecordProfileLoad(origin, status string) {
	if m.profileLoads == nil {
		return
	}
	m.profileLoads.WithLabelValues(origin, status).Inc()
}

// RecordProfileCompile records a profile compilation with its duration.
func (m *Metrics) RecordProfileCompile(profile, status string, duration time.Duration) {
	if m.profileCompiles == nil {
		return
	}
	m.profileCompiles.WithLabelValues(status).Inc()
	m.compileDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// Resolution Metrics

// RecordResolution records a module resolution by its winning layer.
func (m *Metrics) RecordResolution(layer string) {
	if m.moduleResolutions == nil {
		return
	}
	m.moduleResolutions.WithLabelValues(layer).Inc()
}

// RecordResolutionMiss records a module resolution that matched no layer.
func (m *Metrics) RecordResolutionMiss(moduleID string) {
	if m.resolutionMisses == nil {
		return
	}
	m.resolutionMisses.WithLabelValues(moduleID).Inc()
}

// Scope Metrics

// RecordScopeRead records a read of a scope settings file.
func (m *Metrics) RecordScopeRead(scope string) {
	if m.scopeReads == nil {
		return
	}
	m.scopeReads.WithLabelValues(scope).Inc()
}

// RecordScopeWrite records a write to a scope settings file.
func (m *Metrics) RecordScopeWrite(scope string) {
	if m.scopeWrites == nil {
		return
	}
	m.scopeWrites.WithLabelValues(scope).Inc()
}

// Error Metrics

// RecordError records an error by class.
func (m *Metrics) RecordError(errorClass string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
}

// Watch Metrics

// RecordWatchReload records a watch-triggered reassembly.
func (m *Metrics) RecordWatchReload(trigger string) {
	if m.watchReloads == nil {
		return
	}
	m.watchReloads.WithLabelValues(trigger).Inc()
}

// SetActiveWatchers sets the current number of active file watchers.
func (m *Metrics) SetActiveWatchers(count float64) {
	if m.activeWatchers == nil {
		return
	}
	m.activeWatchers.Set(count)
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

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
