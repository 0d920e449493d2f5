package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/metrics"
	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

func newTestRouter(t *testing.T) (http.Handler, store.RunStore) {
	t.Helper()
	runs := store.NewInMemoryRunStore()
	m := metrics.New()
	sim := simulation.NewRunner(simulation.WithStore(runs), simulation.WithMetrics(m))
	return New(sim, runs, m, nil).Router(), runs
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStrength(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodGet, "/strength", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh tissue.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fresh))
	assert.Equal(t, 0, fresh.Steps)
	assert.Greater(t, fresh.Strength, 0.0)

	rec = serve(router, http.MethodGet, "/strength?days=5&oxygen=0.2&factor_policy=raw", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var aged tissue.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&aged))
	assert.Equal(t, 5, aged.Steps)
}

func TestStrength_BadInput(t *testing.T) {
	router, _ := newTestRouter(t)
	tests := []struct {
		name  string
		query string
	}{
		{"not a number", "?ph=acid"},
		{"pH out of range", "?ph=15"},
		{"negative days", "?days=-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodGet, "/strength"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Error)
		})
	}
}

func TestSimulateAndFetchRuns(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := serve(router, http.MethodPost, "/simulate", `{"name":"api","days":4,"replicates":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created runsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created.Runs, 2)
	assert.Len(t, created.Runs[0].Snapshots, 4)

	rec = serve(router, http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed runsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed.Runs, 2)

	rec = serve(router, http.MethodGet, "/runs?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&listed))
	assert.Len(t, listed.Runs, 1)

	id := created.Runs[1].ID
	rec = serve(router, http.MethodGet, "/runs/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var run store.Run
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))
	assert.Equal(t, id, run.ID)
	assert.Equal(t, 1, run.Replicate)
	assert.Len(t, run.Snapshots, 4)

	rec = serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `osteon_simulation_runs_total{outcome="ok",scenario="api"} 2`)
}

func TestSimulate_BadInput(t *testing.T) {
	router, _ := newTestRouter(t)
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"name":`},
		{"unknown field", `{"name":"x","days":1,"speed":3}`},
		{"invalid scenario", `{"name":"x","days":0}`},
		{"unknown ion", `{"name":"x","days":1,"substitutions":[{"ion":"lead","site":"OH","percent":1}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/simulate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRuns_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := serve(router, http.MethodGet, "/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error)

	rec = serve(router, http.MethodGet, "/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns_NoStore(t *testing.T) {
	router := New(simulation.NewRunner(), nil, nil, nil).Router()

	rec := serve(router, http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = serve(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type failingSimulator struct {
	err  error
	cost int
}

func (f failingSimulator) Run(context.Context, simulation.Scenario) (*store.Run, error) {
	return nil, f.err
}

func (f failingSimulator) RunReplicates(context.Context, simulation.Scenario) ([]*store.Run, error) {
	return nil, f.err
}

func (f failingSimulator) Cost(simulation.Scenario) (int, error) {
	return f.cost, nil
}

func (f failingSimulator) Estimate(context.Context, simulation.Scenario) (tissue.Report, error) {
	return tissue.Report{}, f.err
}

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"diverged", biology.SimulationFailure("op", "diverged"), http.StatusUnprocessableEntity, "simulation_failed"},
		{"invalid state", biology.InvalidState("op", "bad"), http.StatusBadRequest, "bad_request"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := New(failingSimulator{err: tt.err}, nil, nil, nil).Router()
			rec := serve(router, http.MethodPost, "/simulate", `{"name":"x","days":1}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Empty(t, body.Description)
			}
		})
	}
}

func TestSimulate_RateLimitedPerClient(t *testing.T) {
	runs := store.NewInMemoryRunStore()
	sim := simulation.NewRunner(simulation.WithStore(runs))
	// 25 steps, refilled at 5 per second.
	limits := ratelimit.Limits{
		ratelimit.OpSimulate: ratelimit.NewLimiter(ratelimit.Budget{Rate: 5, Burst: 25}),
	}
	router := New(sim, runs, nil, nil, WithLimits(limits)).Router()

	// 10 days x 2 replicates.
	body := `{"name":"paced","days":10,"replicates":2}`
	rec := serve(router, http.MethodPost, "/simulate", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodPost, "/simulate", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decodeError(t, rec).Error)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Positive(t, retry)
	assert.LessOrEqual(t, retry, 4)

	// Another client has its own budget.
	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4242"
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	stored, err := runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, stored, 4)
}

func TestSimulate_OverBudget(t *testing.T) {
	router, runs := newTestRouter(t)

	// 100000 daily steps x 64 replicates is more than the default budget.
	rec := serve(router, http.MethodPost, "/simulate", `{"name":"huge","days":100000,"replicates":64}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Description, "budget")
	assert.Empty(t, rec.Header().Get("Retry-After"))

	stored, err := runs.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSimulate_RejectsUnboundedScenarios(t *testing.T) {
	router, _ := newTestRouter(t)

	for name, body := range map[string]string{
		"huge replicates": `{"name":"x","days":1,"replicates":1099511627776}`,
		"tiny period":     `{"name":"x","days":10,"loads":[{"force":{"x":1},"start_day":1,"every_days":1e-17}]}`,
		"overflow step":   `{"name":"x","days":10,"step_days":200000}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(router, http.MethodPost, "/simulate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "bad_request", decodeError(t, rec).Error)
		})
	}
}

func TestStrength_RateLimited(t *testing.T) {
	limits := ratelimit.Limits{
		ratelimit.OpStrength: ratelimit.NewLimiter(ratelimit.Budget{Burst: 10}),
	}
	router := New(simulation.NewRunner(), nil, nil, nil, WithLimits(limits)).Router()

	rec := serve(router, http.MethodGet, "/strength?days=8", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = serve(router, http.MethodGet, "/strength?days=8", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// A bucket that never refills gives no retry hint.
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestWithLimits_EmptyDisables(t *testing.T) {
	sim := failingSimulator{cost: 10_000_000}
	router := New(sim, nil, nil, nil, WithLimits(ratelimit.Limits{})).Router()

	for range 3 {
		rec := serve(router, http.MethodPost, "/simulate", `{"name":"x","days":1}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	// The defaults refuse the same cost outright.
	router = New(sim, nil, nil, nil).Router()
	rec := serve(router, http.MethodPost, "/simulate", `{"name":"x","days":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
