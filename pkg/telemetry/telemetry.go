// Package telemetry records route check runs as Prometheus metrics.
//
// Metrics collected:
//   - routecheck_runs_total: Counter of runs by status (ok, fatal)
//   - routecheck_run_duration_seconds: Histogram of run duration
//   - routecheck_endpoints_checked: Gauge of endpoints checked by the last run
//   - routecheck_diagnostics_total: Counter of diagnostics by id and level
//
// Example:
//
//	rec := telemetry.New(telemetry.WithNamespace("myapp"))
//	checker := urlcheck.New(resolver, urlcheck.WithRecorder(rec))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/routecheck/pkg/urlcheck"
)

// Config configures the recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "routecheck").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for run duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "routecheck",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Recorder implements urlcheck.Recorder.
type Recorder struct {
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	endpointsChecked prometheus.Gauge
	diagnosticsTotal *prometheus.CounterVec
}

var _ urlcheck.Recorder = (*Recorder)(nil)

// New creates a recorder and registers its metrics.
// It panics if the metrics are already registered with the registry.
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Recorder{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "runs_total",
			Help:        "Total number of route check runs",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "run_duration_seconds",
			Help:        "Route check run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		endpointsChecked: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "endpoints_checked",
			Help:        "Number of endpoints checked by the last successful run",
			ConstLabels: config.ConstLabels,
		}),

		diagnosticsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diagnostics_total",
			Help:        "Total number of diagnostics reported",
			ConstLabels: config.ConstLabels,
		}, []string{"id", "level"}),
	}
}

// ObserveRun implements urlcheck.Recorder.
func (r *Recorder) ObserveRun(duration time.Duration, endpoints int, err error) {
	r.runDuration.Observe(duration.Seconds())
	if err != nil {
		r.runsTotal.WithLabelValues("fatal").Inc()
		return
	}
	r.runsTotal.WithLabelValues("ok").Inc()
	r.endpointsChecked.Set(float64(endpoints))
}

// ObserveDiagnostic implements urlcheck.Recorder.
func (r *Recorder) ObserveDiagnostic(d urlcheck.Diagnostic) {
	r.diagnosticsTotal.WithLabelValues(urlcheck.ShortID(d.ID), d.Level.String()).Inc()
}
