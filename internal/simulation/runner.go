package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/crystal"
	"github.com/nvandessel/osteon/internal/export"
	"github.com/nvandessel/osteon/internal/logging"
	"github.com/nvandessel/osteon/internal/metrics"
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

// Runner steps scenarios and hands finished runs to the configured store,
// exporter, metrics and event log. Every sink is optional. A Runner is safe
// for concurrent use; each run owns its sample.
type Runner struct {
	base       tissue.Config
	conditions biology.Conditions
	stepDays   float64
	parallel   int

	store    store.RunStore
	exporter *export.Exporter
	metrics  *metrics.Metrics
	events   *logging.EventLogger
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithBaseConfig sets the sample configuration scenario policies overlay.
func WithBaseConfig(cfg tissue.Config) Option {
	return func(r *Runner) { r.base = cfg }
}

// WithConditions sets the environment scenario overrides overlay.
func WithConditions(c biology.Conditions) Option {
	return func(r *Runner) { r.conditions = c }
}

// WithStepDays sets the step length for scenarios that set none.
func WithStepDays(days float64) Option {
	return func(r *Runner) {
		if days > 0 {
			r.stepDays = days
		}
	}
}

// WithParallelism bounds how many replicates run at once.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallel = n
		}
	}
}

// WithStore saves every finished run.
func WithStore(s store.RunStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithExporter exports every finished run.
func WithExporter(e *export.Exporter) Option {
	return func(r *Runner) { r.exporter = e }
}

// WithMetrics records steps and runs.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithEventLogger writes one event per step and per run.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(r *Runner) { r.events = el }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides the run timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner over default samples at physiological conditions.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		base:       tissue.DefaultConfig(),
		conditions: biology.Physiological(),
		stepDays:   DefaultStepDays,
		parallel:   runtime.GOMAXPROCS(0),
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes replicate 0 of the scenario.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*store.Run, error) {
	sc, err := r.prepare(sc)
	if err != nil {
		return nil, err
	}
	return r.runReplicate(ctx, sc, 0)
}

// RunReplicates executes every replicate of the scenario in parallel and
// returns the runs in replicate order. The first failure cancels the rest.
func (r *Runner) RunReplicates(ctx context.Context, sc Scenario) ([]*store.Run, error) {
	sc, err := r.prepare(sc)
	if err != nil {
		return nil, err
	}
	n := sc.replicates()
	runs := make([]*store.Run, n)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallel)
	for i := range n {
		g.Go(func() error {
			run, err := r.runReplicate(ctx, sc, i)
			if err != nil {
				return fmt.Errorf("replicate %d: %w", i, err)
			}
			runs[i] = run
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Cost validates sc the way Run does and returns the sample steps it takes
// across every replicate. A zero-day scenario, which Estimate reports
// without stepping, costs one step.
func (r *Runner) Cost(sc Scenario) (int, error) {
	if sc.Days == 0 {
		return 1, nil
	}
	sc, err := r.prepare(sc)
	if err != nil {
		return 0, err
	}
	return sc.Cost(), nil
}

func (r *Runner) prepare(sc Scenario) (Scenario, error) {
	if sc.StepDays == 0 {
		sc.StepDays = r.stepDays
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (r *Runner) runReplicate(ctx context.Context, sc Scenario, replicate int) (*store.Run, error) {
	start := time.Now()
	run, err := r.simulate(ctx, sc, replicate)
	if err == nil {
		err = r.persist(ctx, run)
	}
	final := 0.0
	if run != nil {
		final = run.FinalStrength
	}
	r.metrics.ObserveRun(sc.Name, time.Since(start), final, err)
	if err != nil {
		r.logger.Warn("simulation failed", "scenario", sc.Name, "replicate", replicate, "error", err)
		r.events.Log(map[string]any{
			"event":     "run_failed",
			"scenario":  sc.Name,
			"replicate": replicate,
			"error":     err.Error(),
		})
		return nil, err
	}
	return run, nil
}

// Estimate steps a fresh sample through sc and returns its final report
// without saving or exporting it. A scenario with zero days reports the
// unstepped sample under the scenario's initial environment.
func (r *Runner) Estimate(ctx context.Context, sc Scenario) (tissue.Report, error) {
	if sc.Name == "" {
		sc.Name = "estimate"
	}
	if sc.Days == 0 {
		check := sc
		check.Days = check.stepDays()
		if err := check.Validate(); err != nil {
			return tissue.Report{}, err
		}
		if err := sc.conditionsAt(r.conditions, 0).Validate(); err != nil {
			return tissue.Report{}, err
		}
		sample, err := r.newSample(sc)
		if err != nil {
			return tissue.Report{}, err
		}
		return sample.Evaluate(), nil
	}
	sc, err := r.prepare(sc)
	if err != nil {
		return tissue.Report{}, err
	}
	run, err := r.simulate(ctx, sc, 0)
	if err != nil {
		return tissue.Report{}, err
	}
	return run.Report, nil
}

// newSample builds a sample with the scenario's policies and substitutions.
func (r *Runner) newSample(sc Scenario) (*tissue.Sample, error) {
	sample, err := tissue.NewSample(sc.Policies.Apply(r.base))
	if err != nil {
		return nil, fmt.Errorf("failed to create sample: %w", err)
	}
	for _, sub := range sc.Substitutions {
		ion, err := crystal.ParseIonType(sub.Ion)
		if err != nil {
			return nil, err
		}
		site, err := crystal.ParseSite(sub.Site)
		if err != nil {
			return nil, err
		}
		if err := sample.AddSubstitution(ion, site, sub.Percent); err != nil {
			return nil, err
		}
	}
	return sample, nil
}

// simulate steps a fresh sample through the scenario.
func (r *Runner) simulate(ctx context.Context, sc Scenario, replicate int) (*store.Run, error) {
	const op = "simulation.Run"
	sample, err := r.newSample(sc)
	if err != nil {
		return nil, err
	}
	cfg := sample.Config()

	rng := sc.Variation.source(replicate)
	loads := newLoadSchedule(sc.Loads)
	steps := sc.Steps()
	snapshots := make([]store.Snapshot, 0, steps)
	day := 0.0

	for i := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dt := math.Min(sc.stepDays(), sc.Days-day)
		c := sc.Variation.perturb(sc.conditionsAt(r.conditions, day), rng)
		res, err := sample.Step(biology.FromDays(dt), c)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		day = res.Day

		applied := 0
		for _, l := range loads.due(day) {
			if _, err := sample.ApplyLoad(l.Force, l.Duration()); err != nil {
				return nil, fmt.Errorf("load on day %.2f: %w", day, err)
			}
			applied++
		}

		rep := sample.Evaluate()
		if !biology.Finite(rep.Strength) {
			return nil, biology.SimulationFailure(op, "strength diverged to %v on day %.2f", rep.Strength, day)
		}
		snapshots = append(snapshots, snapshotOf(rep))

		r.metrics.ObserveStep(res.CrosslinkFormed)
		r.events.Log(map[string]any{
			"event":            "step",
			"scenario":         sc.Name,
			"replicate":        replicate,
			"day":              day,
			"strength":         rep.Strength,
			"crosslink_formed": res.CrosslinkFormed,
			"loads":            applied,
			"stage":            rep.Stage,
		})
		r.logger.Log(ctx, logging.LevelTrace, "step",
			"scenario", sc.Name, "replicate", replicate, "day", day,
			"strength", rep.Strength, "crosslinks", rep.Crosslinks)
	}

	final := sample.Evaluate()
	return &store.Run{
		Scenario:      sc.Name,
		Replicate:     replicate,
		CreatedAt:     r.now(),
		Config:        cfg,
		Days:          final.Day,
		Steps:         final.Steps,
		FinalStrength: final.Strength,
		Report:        final,
		Snapshots:     snapshots,
	}, nil
}

// persist saves and exports a finished run.
func (r *Runner) persist(ctx context.Context, run *store.Run) error {
	if r.store != nil {
		if err := r.store.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
	} else if run.ID == "" {
		run.ID = uuid.NewString()
	}

	if r.exporter.Enabled() {
		key, err := r.exporter.ExportRun(ctx, run)
		r.metrics.IncrementExport(r.exporter.Driver(), err)
		if err != nil {
			return err
		}
		r.logger.Debug("exported run", "id", run.ID, "key", key)
	}

	r.logger.Info("simulation finished",
		"scenario", run.Scenario, "replicate", run.Replicate, "id", run.ID,
		"days", run.Days, "strength", run.FinalStrength)
	r.events.Log(map[string]any{
		"event":     "run",
		"id":        run.ID,
		"scenario":  run.Scenario,
		"replicate": run.Replicate,
		"days":      run.Days,
		"strength":  run.FinalStrength,
	})
	return nil
}

func snapshotOf(rep tissue.Report) store.Snapshot {
	return store.Snapshot{
		Day:              rep.Day,
		Strength:         rep.Strength,
		Mineral:          rep.Composition.Mineral,
		CrosslinkDensity: rep.Organization.CrosslinkDensity,
		MatrixStrength:   rep.MatrixStrength,
		Crosslinks:       rep.Crosslinks,
		Stage:            rep.Stage,
	}
}

// loadSchedule tracks the next firing day of every load.
type loadSchedule struct {
	loads []LoadSpec
	next  []float64
	done  []bool
}

func newLoadSchedule(loads []LoadSpec) *loadSchedule {
	s := &loadSchedule{loads: loads, next: make([]float64, len(loads)), done: make([]bool, len(loads))}
	for i, l := range loads {
		s.next[i] = l.StartDay
	}
	return s
}

// due returns the loads that fire on or before day, once per firing.
func (s *loadSchedule) due(day float64) []LoadSpec {
	const eps = 1e-9
	var out []LoadSpec
	for i, l := range s.loads {
		for !s.done[i] && s.next[i] <= day+eps {
			out = append(out, l)
			if l.EveryDays == 0 {
				s.done[i] = true
			} else {
				s.next[i] += l.EveryDays
			}
		}
	}
	return out
}
