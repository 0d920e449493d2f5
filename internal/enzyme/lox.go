// Package enzyme models lysyl oxidase (LOX), the copper-dependent amine
// oxidase whose catalytic turnover starts collagen crosslink formation.
package enzyme

import (
	"fmt"
	"math"
	"time"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// ProcessingState is the proteolytic lifecycle of the enzyme.
type ProcessingState int

const (
	Proenzyme ProcessingState = iota
	Intermediate
	Active
	Degraded
)

func (s ProcessingState) String() string {
	switch s {
	case Proenzyme:
		return "proenzyme"
	case Intermediate:
		return "intermediate"
	case Active:
		return "active"
	case Degraded:
		return "degraded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RedoxState is the state of the LTQ cofactor.
type RedoxState int

const (
	Inactive RedoxState = iota
	Oxidized
	Reduced
)

func (r RedoxState) String() string {
	switch r {
	case Inactive:
		return "inactive"
	case Oxidized:
		return "oxidized"
	case Reduced:
		return "reduced"
	default:
		return fmt.Sprintf("redox(%d)", int(r))
	}
}

// Geometry is the copper coordination geometry.
type Geometry int

const (
	Tetrahedral Geometry = iota
	SquarePlanar
	Octahedral
)

// Specificity is which substrates the active site accepts.
type Specificity int

const (
	LysineOnly Specificity = iota
	HydroxylysineOnly
	Both
)

// SubstrateType is the residue being oxidized.
type SubstrateType int

const (
	Lysine SubstrateType = iota
	Hydroxylysine
)

func (t SubstrateType) String() string {
	switch t {
	case Lysine:
		return "lysine"
	case Hydroxylysine:
		return "hydroxylysine"
	default:
		return fmt.Sprintf("substrate(%d)", int(t))
	}
}

// Substrate is a telopeptide residue presented to the active site.
type Substrate struct {
	Type     SubstrateType
	Position int
	Modified bool
}

// Accepts reports whether a site with this specificity binds t.
func (s Specificity) Accepts(t SubstrateType) bool {
	switch s {
	case Both:
		return true
	case LysineOnly:
		return t == Lysine
	case HydroxylysineOnly:
		return t == Hydroxylysine
	default:
		return false
	}
}

// ActivationPolicy decides when activation requirements are re-checked.
type ActivationPolicy int

const (
	// RetryActivation forms the cofactor and re-checks activation whenever
	// copper binds or proteolysis happens, so call order does not matter.
	RetryActivation ActivationPolicy = iota
	// LegacyActivation only checks activation inside Activate, before any
	// cofactor could have formed. The enzyme then never leaves Intermediate.
	LegacyActivation
)

func (p ActivationPolicy) String() string {
	if p == LegacyActivation {
		return "legacy"
	}
	return "retry"
}

// ParseActivationPolicy maps "legacy" to LegacyActivation. Anything else retries.
func ParseActivationPolicy(s string) ActivationPolicy {
	if s == "legacy" {
		return LegacyActivation
	}
	return RetryActivation
}

func (p ActivationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ActivationPolicy) UnmarshalText(b []byte) error {
	*p = ParseActivationPolicy(string(b))
	return nil
}

// Propeptide is the N-terminal domain removed by proteolysis.
type Propeptide struct {
	Length           int
	CleavageSite     int
	RegulatoryActive bool
}

// Kinetics are the catalytic constants.
type Kinetics struct {
	KCat               float64
	KM                 float64
	PHOptimum          float64
	TemperatureOptimum float64
}

// Inhibition fractions, 0.0-1.0.
type Inhibition struct {
	Competitive float64
	Allosteric  float64
}

// ActivityRecord is one successful catalytic event.
type ActivityRecord struct {
	Time       time.Time
	Activity   float64
	Substrate  Substrate
	Conditions biology.Conditions
}

// LysylOxidase is a single LOX enzyme. Mutating calls must be serialized by
// the caller.
type LysylOxidase struct {
	state       ProcessingState
	proteolysis bool
	propeptide  Propeptide

	copperBound    bool
	copperAffinity float64
	geometry       Geometry
	ltqFormed      bool
	redox          RedoxState
	specificity    Specificity

	kinetics   Kinetics
	expression float64
	inhibition Inhibition

	history []ActivityRecord

	activation ActivationPolicy
	policy     biology.FactorPolicy
	now        func() time.Time
}

// Option configures a LysylOxidase.
type Option func(*LysylOxidase)

// WithActivationPolicy selects retrying or legacy activation.
func WithActivationPolicy(p ActivationPolicy) Option {
	return func(l *LysylOxidase) { l.activation = p }
}

// WithFactorPolicy sets how pH, temperature and oxygen factors are bounded.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(l *LysylOxidase) { l.policy = p }
}

// WithClock sets the time source for activity records.
func WithClock(now func() time.Time) Option {
	return func(l *LysylOxidase) { l.now = now }
}

// New returns a proenzyme with no copper and no cofactor.
func New(opts ...Option) *LysylOxidase {
	l := &LysylOxidase{
		state: Proenzyme,
		propeptide: Propeptide{
			Length:           constants.LOXPropeptideLength,
			CleavageSite:     constants.LOXCleavageSite,
			RegulatoryActive: true,
		},
		copperAffinity: constants.LOXCopperAffinity,
		geometry:       SquarePlanar,
		redox:          Inactive,
		specificity:    Both,
		kinetics: Kinetics{
			KCat:               constants.LOXCatalyticRate,
			KM:                 constants.LOXMichaelisConstant,
			PHOptimum:          constants.OptimalPH,
			TemperatureOptimum: constants.OptimalTemperature,
		},
		expression: 1.0,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Activate performs proteolytic processing. It does nothing and returns
// false unless the enzyme is a proenzyme. It returns true when the enzyme
// ends up Active.
func (l *LysylOxidase) Activate() bool {
	if l.state != Proenzyme {
		return false
	}
	l.state = Intermediate
	l.proteolysis = true
	l.propeptide.RegulatoryActive = false

	if l.activation == LegacyActivation {
		if l.copperBound && l.ltqFormed {
			l.state = Active
		}
		return l.state == Active
	}

	l.formLTQ()
	l.checkActive()
	return l.state == Active
}

// LoadCopper binds copper. It returns false if copper is already bound or
// the enzyme is degraded. After proteolysis, binding copper forms the LTQ
// cofactor.
func (l *LysylOxidase) LoadCopper() bool {
	if l.copperBound || l.state == Degraded {
		return false
	}
	l.copperBound = true
	if l.proteolysis {
		l.formLTQ()
	}
	if l.activation == RetryActivation {
		l.checkActive()
	}
	return true
}

func (l *LysylOxidase) formLTQ() {
	if !l.copperBound || !l.proteolysis || l.ltqFormed {
		return
	}
	l.ltqFormed = true
	l.redox = Oxidized
}

func (l *LysylOxidase) checkActive() {
	if l.state == Intermediate && l.copperBound && l.ltqFormed {
		l.state = Active
	}
}

// CalculateActivity returns zero unless the enzyme is Active. Otherwise it is
// kcat × expression × (1-competitive) × (1-allosteric) scaled by the pH,
// temperature and oxygen factors.
func (l *LysylOxidase) CalculateActivity(c biology.Conditions) float64 {
	if l.state != Active {
		return 0
	}
	base := l.kinetics.KCat * l.expression * (1 - l.inhibition.Competitive) * (1 - l.inhibition.Allosteric)
	ph := l.policy.Deviation(c.PH, l.kinetics.PHOptimum)
	temp := l.policy.Deviation(c.Temperature, l.kinetics.TemperatureOptimum)
	oxygen := l.policy.Apply(math.Min(c.Oxygen, 1))
	return base * ph * temp * oxygen
}

// Catalyze oxidizes s. It returns false when the enzyme is not Active, the
// active site does not accept the substrate, or activity does not exceed the
// catalysis threshold. On success it records the event and reduces the
// cofactor. Malformed conditions or substrates are errors.
func (l *LysylOxidase) Catalyze(s Substrate, c biology.Conditions) (bool, error) {
	const op = "enzyme.Catalyze"
	if err := c.Validate(); err != nil {
		return false, err
	}
	if s.Type != Lysine && s.Type != Hydroxylysine {
		return false, biology.InvalidInteraction(op, "unknown substrate %s", s.Type)
	}
	if l.state != Active || !l.specificity.Accepts(s.Type) {
		return false, nil
	}
	activity := l.CalculateActivity(c)
	if activity <= constants.CatalysisThreshold {
		return false, nil
	}
	l.history = append(l.history, ActivityRecord{
		Time:       l.now(),
		Activity:   activity,
		Substrate:  s,
		Conditions: c,
	})
	l.redox = Reduced
	return true, nil
}

// Reoxidize regenerates a reduced cofactor. It returns true when the redox
// state changed.
func (l *LysylOxidase) Reoxidize() bool {
	if !l.ltqFormed || l.redox != Reduced || l.state == Degraded {
		return false
	}
	l.redox = Oxidized
	return true
}

// Degrade moves the enzyme to the terminal Degraded state.
func (l *LysylOxidase) Degrade() {
	l.state = Degraded
	l.redox = Inactive
}

// SetExpressionLevel sets the relative expression level.
func (l *LysylOxidase) SetExpressionLevel(v float64) error {
	const op = "enzyme.SetExpressionLevel"
	if l.state == Degraded {
		return biology.InvalidState(op, "enzyme is degraded")
	}
	if !biology.Finite(v) || v < 0 {
		return biology.InvalidParameter(op, "expression %v must be finite and non-negative", v)
	}
	l.expression = v
	return nil
}

// SetInhibition sets competitive and allosteric inhibition fractions.
func (l *LysylOxidase) SetInhibition(in Inhibition) error {
	const op = "enzyme.SetInhibition"
	if l.state == Degraded {
		return biology.InvalidState(op, "enzyme is degraded")
	}
	for _, v := range []float64{in.Competitive, in.Allosteric} {
		if !biology.Finite(v) || v < 0 || v > 1 {
			return biology.InvalidParameter(op, "inhibition %v outside [0, 1]", v)
		}
	}
	l.inhibition = in
	return nil
}

// SetSpecificity changes which substrates the active site accepts.
func (l *LysylOxidase) SetSpecificity(s Specificity) error {
	const op = "enzyme.SetSpecificity"
	if l.state == Degraded {
		return biology.InvalidState(op, "enzyme is degraded")
	}
	if s < LysineOnly || s > Both {
		return biology.InvalidParameter(op, "unknown specificity %d", int(s))
	}
	l.specificity = s
	return nil
}

// History returns a copy of the recorded catalytic events.
func (l *LysylOxidase) History() []ActivityRecord {
	return append([]ActivityRecord(nil), l.history...)
}

func (l *LysylOxidase) State() ProcessingState   { return l.state }
func (l *LysylOxidase) Redox() RedoxState        { return l.redox }
func (l *LysylOxidase) CopperBound() bool        { return l.copperBound }
func (l *LysylOxidase) CofactorFormed() bool     { return l.ltqFormed }
func (l *LysylOxidase) Propeptide() Propeptide   { return l.propeptide }
func (l *LysylOxidase) Kinetics() Kinetics       { return l.kinetics }
func (l *LysylOxidase) ExpressionLevel() float64 { return l.expression }
func (l *LysylOxidase) Geometry() Geometry       { return l.geometry }
func (l *LysylOxidase) CopperAffinity() float64  { return l.copperAffinity }
