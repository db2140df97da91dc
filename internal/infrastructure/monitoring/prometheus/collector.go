// Package prometheus wraps client_golang behind small vector interfaces so
// services can record metrics without depending on a global registry.
package prometheus

import (
	"database/sql"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/pkg/errors"
)

// MetricsCollector owns a private registry and names every metric
// "<namespace>_<subsystem>_<name>".
type MetricsCollector interface {
	RegisterCounter(name, help string, labels ...string) CounterVec
	RegisterGauge(name, help string, labels ...string) GaugeVec
	RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec
	MustRegister(cs ...prometheus.Collector)
	Handler() http.Handler
}

type CounterVec interface{ WithLabelValues(lvs ...string) Counter }
type GaugeVec interface{ WithLabelValues(lvs ...string) Gauge }
type HistogramVec interface{ WithLabelValues(lvs ...string) Histogram }

type Counter interface {
	Inc()
	Add(delta float64)
}

type Gauge interface {
	Set(value float64)
	Inc()
	Dec()
}

type Histogram interface{ Observe(value float64) }

type CollectorConfig struct {
	Namespace               string            `mapstructure:"namespace"`
	Subsystem               string            `mapstructure:"subsystem"`
	EnableProcessMetrics    bool              `mapstructure:"enable_process_metrics"`
	EnableGoMetrics         bool              `mapstructure:"enable_go_metrics"`
	DefaultHistogramBuckets []float64         `mapstructure:"default_histogram_buckets"`
	ConstLabels             map[string]string `mapstructure:"const_labels"`
}

type registryCollector struct {
	reg    *prometheus.Registry
	cfg    CollectorConfig
	logger logging.Logger

	mu     sync.Mutex
	byName map[string]prometheus.Collector
}

func NewMetricsCollector(cfg CollectorConfig, logger logging.Logger) (MetricsCollector, error) {
	if cfg.Namespace == "" {
		return nil, errors.InvalidParam("metrics namespace is required")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg.DefaultHistogramBuckets == nil {
		cfg.DefaultHistogramBuckets = prometheus.DefBuckets
	}

	reg := prometheus.NewRegistry()
	if cfg.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: cfg.Namespace}))
	}
	if cfg.EnableGoMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}
	return &registryCollector{reg: reg, cfg: cfg, logger: logger, byName: map[string]prometheus.Collector{}}, nil
}

// NewNoopCollector discards everything.  Handler answers 404.
func NewNoopCollector() MetricsCollector { return noopCollector{} }

func (c *registryCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (c *registryCollector) MustRegister(cs ...prometheus.Collector) { c.reg.MustRegister(cs...) }

// RegisterDBStats exports the sql.DB pool statistics as go_sql_* series
// labelled db_name.
func RegisterDBStats(c MetricsCollector, db *sql.DB, name string) {
	c.MustRegister(collectors.NewDBStatsCollector(db, name))
}

func (c *registryCollector) RegisterCounter(name, help string, labels ...string) CounterVec {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts(c.opts(name, help)), labels)
	if got, ok := register(c, name, "counter", vec); ok {
		return counterVec{got}
	}
	return noopCounters{}
}

func (c *registryCollector) RegisterGauge(name, help string, labels ...string) GaugeVec {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts(c.opts(name, help)), labels)
	if got, ok := register(c, name, "gauge", vec); ok {
		return gaugeVec{got}
	}
	return noopGauges{}
}

// RegisterHistogram uses the configured default buckets when buckets is nil.
func (c *registryCollector) RegisterHistogram(name, help string, buckets []float64, labels ...string) HistogramVec {
	if buckets == nil {
		buckets = c.cfg.DefaultHistogramBuckets
	}
	o := c.opts(name, help)
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   o.Namespace,
		Subsystem:   o.Subsystem,
		Name:        o.Name,
		Help:        o.Help,
		ConstLabels: o.ConstLabels,
		Buckets:     buckets,
	}, labels)
	if got, ok := register(c, name, "histogram", vec); ok {
		return histogramVec{got}
	}
	return noopHistograms{}
}

func (c *registryCollector) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   c.cfg.Namespace,
		Subsystem:   c.cfg.Subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: c.cfg.ConstLabels,
	}
}

// register returns the vector already stored under name when there is
// one.  ok is false when registration fails or the stored vector has a
// different type; callers then fall back to a no-op.
func register[V prometheus.Collector](c *registryCollector, name, kind string, vec V) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fq := prometheus.BuildFQName(c.cfg.Namespace, c.cfg.Subsystem, name)
	if prev, exists := c.byName[fq]; exists {
		got, ok := prev.(V)
		if !ok {
			c.logger.Warn("metric type mismatch", logging.String("name", fq), logging.String("type", kind))
		}
		return got, ok
	}
	if err := c.reg.Register(vec); err != nil {
		c.logger.Error("failed to register "+kind, logging.String("name", fq), logging.Err(err))
		var zero V
		return zero, false
	}
	c.byName[fq] = vec
	return vec, true
}

type counterVec struct{ *prometheus.CounterVec }

func (v counterVec) WithLabelValues(lvs ...string) Counter { return v.CounterVec.WithLabelValues(lvs...) }

type gaugeVec struct{ *prometheus.GaugeVec }

func (v gaugeVec) WithLabelValues(lvs ...string) Gauge { return v.GaugeVec.WithLabelValues(lvs...) }

type histogramVec struct{ *prometheus.HistogramVec }

func (v histogramVec) WithLabelValues(lvs ...string) Histogram {
	return v.HistogramVec.WithLabelValues(lvs...)
}

// ─────────────────────────────────────────────────────────────────────────────
// No-op
// ─────────────────────────────────────────────────────────────────────────────

type noopCollector struct{}

func (noopCollector) RegisterCounter(string, string, ...string) CounterVec { return noopCounters{} }
func (noopCollector) RegisterGauge(string, string, ...string) GaugeVec     { return noopGauges{} }
func (noopCollector) RegisterHistogram(string, string, []float64, ...string) HistogramVec {
	return noopHistograms{}
}
func (noopCollector) MustRegister(...prometheus.Collector) {}
func (noopCollector) Handler() http.Handler                { return http.NotFoundHandler() }

type (
	noopCounters   struct{}
	noopGauges     struct{}
	noopHistograms struct{}
	noopMetric     struct{}
)

func (noopCounters) WithLabelValues(...string) Counter     { return noopMetric{} }
func (noopGauges) WithLabelValues(...string) Gauge         { return noopMetric{} }
func (noopHistograms) WithLabelValues(...string) Histogram { return noopMetric{} }


func (noopMetric) Inc()            {}
func (noopMetric) Dec()            {}
func (noopMetric) Add(float64)     {}
func (noopMetric) Set(float64)     {}
func (noopMetric) Observe(float64) {}

//Personal.AI order the ending
