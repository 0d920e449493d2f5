package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestMetrics_ObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun("baseline", 10*time.Millisecond, 0.62, nil)
	m.ObserveRun("baseline", 5*time.Millisecond, 0, errors.New("nan"))

	body := scrape(t, m)
	assert.Contains(t, body, `osteon_simulation_runs_total{outcome="ok",scenario="baseline"} 1`)
	assert.Contains(t, body, `osteon_simulation_runs_total{outcome="error",scenario="baseline"} 1`)
	assert.Contains(t, body, `osteon_bone_strength{scenario="baseline"} 0.62`)
	assert.Contains(t, body, "osteon_simulation_run_duration_seconds_count 2")
}

func TestMetrics_ObserveStep(t *testing.T) {
	m := New()
	m.ObserveStep(true)
	m.ObserveStep(false)
	m.ObserveStep(true)

	body := scrape(t, m)
	assert.Contains(t, body, "osteon_simulation_steps_total 3")
	assert.Contains(t, body, "osteon_crosslinks_formed_total 2")
}

func TestMetrics_IncrementExport(t *testing.T) {
	m := New()
	m.IncrementExport("s3", nil)
	m.IncrementExport("s3", errors.New("denied"))

	body := scrape(t, m)
	assert.Contains(t, body, `osteon_report_exports_total{driver="s3",outcome="ok"} 1`)
	assert.Contains(t, body, `osteon_report_exports_total{driver="s3",outcome="error"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveStep(false)
	assert.Contains(t, scrape(t, a), "osteon_simulation_steps_total 1")
	assert.Contains(t, scrape(t, b), "osteon_simulation_steps_total 0")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRun("x", time.Second, 1, nil)
	m.ObserveStep(true)
	m.IncrementExport("fs", nil)
	assert.Nil(t, m.Registry())
	assert.NotContains(t, scrape(t, m), "osteon_")
}
