package simulation

import (
	"cmp"
	"embed"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/crosslink"
	"github.com/nvandessel/osteon/internal/crystal"
	"github.com/nvandessel/osteon/internal/enzyme"
	"github.com/nvandessel/osteon/internal/tissue"
)

// DefaultStepDays is the step length used when a scenario sets none.
const DefaultStepDays = 1.0

// Limits on a single scenario. Together they bound the work of a run: at
// most MaxSteps steps and MaxLoadFirings loads per replicate.
const (
	MaxSteps       = 100_000
	MaxReplicates  = 64
	MaxLoads       = 64
	MaxLoadFirings = MaxSteps

	// MaxDays keeps a sample's age representable as a time.Duration.
	MaxDays = 100_000.0

	// MinStepDays is one second.
	MinStepDays = 1.0 / 86400

	// MaxLoadSeconds is the longest single load, one day.
	MaxLoadSeconds = 86400.0
)

//go:embed scenarios/*.yaml
var builtinFS embed.FS

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Days        float64 `json:"days" yaml:"days"`
	StepDays    float64 `json:"step_days,omitempty" yaml:"step_days,omitempty"`

	// Environment overrides the runner's base conditions.
	Environment EnvironmentSpec `json:"environment,omitempty" yaml:"environment,omitempty"`

	// Phases switch the environment from a given day on.
	Phases []Phase `json:"phases,omitempty" yaml:"phases,omitempty"`

	Loads         []LoadSpec         `json:"loads,omitempty" yaml:"loads,omitempty"`
	Substitutions []SubstitutionSpec `json:"substitutions,omitempty" yaml:"substitutions,omitempty"`

	// Replicates is the number of independent samples RunReplicates steps.
	Replicates int `json:"replicates,omitempty" yaml:"replicates,omitempty"`

	// Variation perturbs each replicate's per-step conditions.
	Variation Variation `json:"variation,omitempty" yaml:"variation,omitempty"`

	Policies Policies `json:"policies,omitempty" yaml:"policies,omitempty"`
}

// EnvironmentSpec overrides individual condition fields. Unset fields keep
// the value they overlay.
type EnvironmentSpec struct {
	PH          *float64 `json:"ph,omitempty" yaml:"ph,omitempty"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Oxygen      *float64 `json:"oxygen,omitempty" yaml:"oxygen,omitempty"`
}

// Apply overlays the set fields onto c.
func (e EnvironmentSpec) Apply(c biology.Conditions) biology.Conditions {
	if e.PH != nil {
		c.PH = *e.PH
	}
	if e.Temperature != nil {
		c.Temperature = *e.Temperature
	}
	if e.Oxygen != nil {
		c.Oxygen = *e.Oxygen
	}
	return c
}

// Phase changes the environment starting at FromDay.
type Phase struct {
	FromDay     float64         `json:"from_day" yaml:"from_day"`
	Environment EnvironmentSpec `json:"environment" yaml:"environment"`
}

// LoadSpec schedules a mechanical load. With EveryDays == 0 it fires once at
// StartDay.
type LoadSpec struct {
	StartDay        float64         `json:"start_day,omitempty" yaml:"start_day,omitempty"`
	EveryDays       float64         `json:"every_days,omitempty" yaml:"every_days,omitempty"`
	Force           biology.Vector3 `json:"force" yaml:"force"`
	DurationSeconds float64         `json:"duration_s,omitempty" yaml:"duration_s,omitempty"`
}

// Duration returns the load duration.
func (l LoadSpec) Duration() time.Duration {
	return time.Duration(l.DurationSeconds * float64(time.Second))
}

// SubstitutionSpec is an ionic substitution applied before the first step.
type SubstitutionSpec struct {
	Ion     string  `json:"ion" yaml:"ion"`
	Site    string  `json:"site" yaml:"site"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Variation is the uniform noise amplitude per condition field.
type Variation struct {
	Seed        uint64  `json:"seed,omitempty" yaml:"seed,omitempty"`
	PH          float64 `json:"ph,omitempty" yaml:"ph,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Oxygen      float64 `json:"oxygen,omitempty" yaml:"oxygen,omitempty"`
}

func (v Variation) enabled() bool {
	return v.PH != 0 || v.Temperature != 0 || v.Oxygen != 0
}

// source returns the noise source of one replicate, or nil without variation.
func (v Variation) source(replicate int) *rand.Rand {
	if !v.enabled() {
		return nil
	}
	return rand.New(rand.NewPCG(v.Seed, uint64(replicate)))
}

func (v Variation) perturb(c biology.Conditions, rng *rand.Rand) biology.Conditions {
	if rng == nil {
		return c
	}
	jitter := func(a float64) float64 { return (rng.Float64()*2 - 1) * a }
	c.PH = biology.Clamp(c.PH+jitter(v.PH), 0, 14)
	c.Temperature += jitter(v.Temperature)
	c.Oxygen = biology.Clamp01(c.Oxygen + jitter(v.Oxygen))
	return c
}

// Policies override the runner's base sample configuration. Empty strings
// and zero rates keep the base value.
type Policies struct {
	FactorPolicy       string  `json:"factor_policy,omitempty" yaml:"factor_policy,omitempty"`
	Maturation         string  `json:"maturation,omitempty" yaml:"maturation,omitempty"`
	Activation         string  `json:"activation,omitempty" yaml:"activation,omitempty"`
	EnzymeExpression   float64 `json:"enzyme_expression,omitempty" yaml:"enzyme_expression,omitempty"`
	MineralizationRate float64 `json:"mineralization_rate,omitempty" yaml:"mineralization_rate,omitempty"`
}

// Apply overlays the set policies onto base.
func (p Policies) Apply(base tissue.Config) tissue.Config {
	if p.FactorPolicy != "" {
		base.Policy = biology.ParseFactorPolicy(p.FactorPolicy)
	}
	if p.Maturation != "" {
		base.Maturation = crosslink.ParseMaturationMode(p.Maturation)
	}
	if p.Activation != "" {
		base.Activation = enzyme.ParseActivationPolicy(p.Activation)
	}
	if p.EnzymeExpression != 0 {
		base.EnzymeExpression = p.EnzymeExpression
	}
	if p.MineralizationRate != 0 {
		base.MineralizationRate = p.MineralizationRate
	}
	return base
}

// Validate rejects scenarios the runner cannot step or that exceed the
// scenario limits.
func (s Scenario) Validate() error {
	const op = "simulation.Scenario"
	if strings.TrimSpace(s.Name) == "" {
		return biology.InvalidParameter(op, "name is required")
	}
	if !biology.Finite(s.Days) || s.Days <= 0 || s.Days > MaxDays {
		return biology.InvalidParameter(op, "days must be in (0, %.0f], got %v", MaxDays, s.Days)
	}
	if !biology.Finite(s.StepDays) || s.StepDays < 0 || s.StepDays > MaxDays {
		return biology.InvalidParameter(op, "step_days must be in [0, %.0f], got %v", MaxDays, s.StepDays)
	}
	if s.StepDays != 0 && s.StepDays < MinStepDays {
		return biology.InvalidParameter(op, "step_days must be at least one second (%.3g days), got %v", MinStepDays, s.StepDays)
	}
	if s.Days/s.stepDays() > MaxSteps {
		return biology.InvalidParameter(op, "%.0f days in steps of %v exceeds the limit of %d steps", s.Days, s.stepDays(), MaxSteps)
	}
	if s.Replicates < 0 || s.Replicates > MaxReplicates {
		return biology.InvalidParameter(op, "replicates must be in [0, %d], got %d", MaxReplicates, s.Replicates)
	}
	if len(s.Loads) > MaxLoads {
		return biology.InvalidParameter(op, "%d loads exceeds the limit of %d", len(s.Loads), MaxLoads)
	}
	for i, l := range s.Loads {
		if !l.Force.Finite() || !biology.Finite(l.StartDay) || l.StartDay < 0 ||
			!biology.Finite(l.DurationSeconds) || l.DurationSeconds < 0 || l.DurationSeconds > MaxLoadSeconds {
			return biology.InvalidParameter(op, "load %d is invalid: %+v", i, l)
		}
		if !biology.Finite(l.EveryDays) || l.EveryDays < 0 || (l.EveryDays > 0 && l.EveryDays < s.stepDays()) {
			return biology.InvalidParameter(op, "load %d repeats every %v days, the period must be 0 or at least one step (%v days)", i, l.EveryDays, s.stepDays())
		}
	}
	if n := s.loadFirings(); n > MaxLoadFirings {
		return biology.InvalidParameter(op, "loads fire %d times, the limit is %d", n, MaxLoadFirings)
	}
	for i, sub := range s.Substitutions {
		if _, err := crystal.ParseIonType(sub.Ion); err != nil {
			return fmt.Errorf("substitution %d: %w", i, err)
		}
		if _, err := crystal.ParseSite(sub.Site); err != nil {
			return fmt.Errorf("substitution %d: %w", i, err)
		}
	}
	for i, p := range s.Phases {
		if !biology.Finite(p.FromDay) || p.FromDay < 0 {
			return biology.InvalidParameter(op, "phase %d must start on a day >= 0, got %v", i, p.FromDay)
		}
	}
	return nil
}

// loadFirings counts how often the loads fire over the run.
func (s Scenario) loadFirings() int {
	total := 0
	for _, l := range s.Loads {
		switch {
		case l.StartDay > s.Days:
		case l.EveryDays == 0:
			total++
		default:
			total += int(math.Floor((s.Days-l.StartDay)/l.EveryDays)) + 1
		}
	}
	return total
}

// Cost is the number of sample steps the scenario runs across all
// replicates.
func (s Scenario) Cost() int {
	return s.Steps() * s.replicates()
}

// stepDays returns the effective step length.
func (s Scenario) stepDays() float64 {
	if s.StepDays > 0 {
		return s.StepDays
	}
	return DefaultStepDays
}

// Steps returns the number of steps needed to cover Days. The last step is
// shortened when Days is not a multiple of the step length.
func (s Scenario) Steps() int {
	return int(math.Ceil(s.Days/s.stepDays() - 1e-9))
}

// replicates returns at least one.
func (s Scenario) replicates() int {
	return max(1, s.Replicates)
}

// conditionsAt returns the environment in force on day, before variation.
// Phases apply in FromDay order.
func (s Scenario) conditionsAt(base biology.Conditions, day float64) biology.Conditions {
	c := s.Environment.Apply(base)
	phases := slices.Clone(s.Phases)
	slices.SortStableFunc(phases, func(a, b Phase) int {
		return cmp.Compare(a.FromDay, b.FromDay)
	})
	for _, p := range phases {
		if day >= p.FromDay {
			c = p.Environment.Apply(c)
		}
	}
	return c
}

// ParseScenario decodes a YAML (or JSON) scenario and validates it.
func ParseScenario(data []byte) (Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// LoadScenarioFile reads a scenario from path.
func LoadScenarioFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// Builtin returns the bundled scenario with the given name.
func Builtin(name string) (Scenario, error) {
	data, err := builtinFS.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return Scenario{}, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return ParseScenario(data)
}

// BuiltinNames lists the bundled scenarios.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("scenarios")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	slices.Sort(names)
	return names
}
