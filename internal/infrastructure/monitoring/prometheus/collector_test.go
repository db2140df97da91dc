package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ContractKeeper/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractKeeper/internal/testutil"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, c MetricsCollector) string {
	t.Helper()
	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_RequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
}

func TestNewMetricsCollector_ProcessMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableProcessMetrics: true}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrape(t, c), "process_cpu_seconds_total")
}

func TestRegisterCounter(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("things_total", "things", "kind")
	vec.WithLabelValues("a").Inc()
	vec.WithLabelValues("a").Add(2)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_things_total{kind="a"} 3`)
}

func TestRegisterCounter_SameNameReturnsExisting(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("x").Inc()
	c.RegisterCounter("dup_total", "dup", "k").WithLabelValues("x").Inc()
	assert.Contains(t, scrape(t, c), `test_unit_dup_total{k="x"} 2`)
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	log := testutil.NewMockLogger()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test"}, log)
	require.NoError(t, err)

	c.RegisterCounter("clash", "counter", "k")
	g := c.RegisterGauge("clash", "gauge", "k")
	assert.NotPanics(t, func() { g.WithLabelValues("x").Set(1) })
	assert.True(t, log.HasMessage(logging.LevelWarn, "metric type mismatch"))
}

func TestRegisterGaugeAndHistogram(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("level", "level", "k").WithLabelValues("x").Set(4)
	c.RegisterHistogram("latency_seconds", "latency", nil, "k").WithLabelValues("x").Observe(0.2)

	out := scrape(t, c)
	assert.Contains(t, out, `test_unit_level{k="x"} 4`)
	assert.Contains(t, out, `test_unit_latency_seconds_count{k="x"} 1`)
}

func TestMustRegister(t *testing.T) {
	c := newTestCollector(t)
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "external_gauge", Help: "x"})
	c.MustRegister(g)
	g.Set(7)
	assert.Contains(t, scrape(t, c), "external_gauge 7")
}

func TestNoopCollector(t *testing.T) {
	c := NewNoopCollector()
	assert.NotPanics(t, func() {
		c.RegisterCounter("a", "a").WithLabelValues().Inc()
		c.RegisterGauge("b", "b").WithLabelValues().Dec()
		c.RegisterHistogram("c", "c", nil).WithLabelValues().Observe(1)
	})
}

func TestMustRegister_DBStats(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c := newTestCollector(t)
	RegisterDBStats(c, db, "contracts")
	assert.Contains(t, scrape(t, c), `go_sql_open_connections{db_name="contracts"}`)
}

//Personal.AI order the ending
