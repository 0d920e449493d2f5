// Package httpapi serves simulations and stored runs over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nvandessel/osteon/internal/logging"
	"github.com/nvandessel/osteon/internal/metrics"
	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

// DefaultListLimit is the number of runs GET /runs returns without a limit.
const DefaultListLimit = 20

// maxBodyBytes bounds POST /simulate request bodies.
const maxBodyBytes = 1 << 20

// Simulator runs scenarios.
type Simulator interface {
	Run(ctx context.Context, sc simulation.Scenario) (*store.Run, error)
	RunReplicates(ctx context.Context, sc simulation.Scenario) ([]*store.Run, error)
	Estimate(ctx context.Context, sc simulation.Scenario) (tissue.Report, error)
	Cost(sc simulation.Scenario) (int, error)
}

// Handler wires the HTTP endpoints to the simulator and run store.
type Handler struct {
	sim     Simulator
	runs    store.RunStore
	metrics *metrics.Metrics
	limits  ratelimit.Limits
	logger  *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLimits replaces the default per-client step budgets. An empty map
// disables rate limiting.
func WithLimits(l ratelimit.Limits) Option {
	return func(h *Handler) { h.limits = l }
}

// New constructs a handler. runs and m may be nil; the endpoints that need
// them then respond 503 and 404 respectively. Strength and simulate
// requests are charged against ratelimit.DefaultLimits per client address
// unless WithLimits says otherwise.
func New(sim Simulator, runs store.RunStore, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{sim: sim, runs: runs, metrics: m, limits: ratelimit.DefaultLimits(), logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.HandleHealth)
	r.Get("/strength", h.HandleStrength)
	r.Post("/simulate", h.HandleSimulate)
	r.Get("/runs", h.HandleListRuns)
	r.Get("/runs/{id}", h.HandleGetRun)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
}

// Router returns a chi router with the endpoints and standard middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.Register(r)
	return r
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleStrength handles GET /strength. Query parameters describe the
// environment, the policies and the number of days to age the sample.
func (h *Handler) HandleStrength(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sc, err := strengthScenario(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.charge(r, ratelimit.OpStrength, sc); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.sim.Estimate(ctx, sc)
	if err != nil {
		h.logger.WarnContext(ctx, "strength estimate failed",
			"request_id", middleware.GetReqID(ctx),
			"error", err,
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleSimulate handles POST /simulate. The body is a scenario; every
// replicate is run and returned.
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	sc, err := decodeScenario(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.charge(r, ratelimit.OpSimulate, sc); err != nil {
		h.logger.InfoContext(ctx, "simulation refused",
			"request_id", middleware.GetReqID(ctx),
			"scenario", sc.Name,
			"error", err,
		)
		writeError(w, err)
		return
	}

	runs, err := h.sim.RunReplicates(ctx, sc)
	if err != nil {
		h.logger.ErrorContext(ctx, "simulation failed",
			"request_id", middleware.GetReqID(ctx),
			"scenario", sc.Name,
			"error", err,
		)
		writeError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "simulation served",
		"request_id", middleware.GetReqID(ctx),
		"scenario", sc.Name,
		"replicates", len(runs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusCreated, runsResponse{Runs: runs})
}

// HandleListRuns handles GET /runs.
func (h *Handler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, errNoStore)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]*store.Run, len(runs))
	for i := range runs {
		out[i] = &runs[i]
	}
	writeJSON(w, http.StatusOK, runsResponse{Runs: out})
}

// HandleGetRun handles GET /runs/{id}.
func (h *Handler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, errNoStore)
		return
	}
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "failed to load run", "error", err)
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// charge bills the client for the sample steps sc would take.
func (h *Handler) charge(r *http.Request, op ratelimit.Op, sc simulation.Scenario) error {
	cost, err := h.sim.Cost(sc)
	if err != nil {
		return err
	}
	return h.limits.Charge(op, clientKey(r), cost)
}

// clientKey is the remote host without its port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type runsResponse struct {
	Runs []*store.Run `json:"runs"`
}
