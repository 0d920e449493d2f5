// Package crosslink models covalent collagen crosslinks: their type-specific
// strength and stability, time-driven maturation, and enzymatic formation.
package crosslink

import (
	"fmt"
	"math"
	"time"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// Type is the chemical variant of a crosslink.
type Type int

const (
	// DHLNL and HLNL are immature divalent crosslinks.
	DHLNL Type = iota
	HLNL
	// Pyridinoline and Deoxypyridinoline are mature trivalent crosslinks.
	Pyridinoline
	Deoxypyridinoline
)

func (t Type) String() string {
	switch t {
	case DHLNL:
		return "DHLNL"
	case HLNL:
		return "HLNL"
	case Pyridinoline:
		return "pyridinoline"
	case Deoxypyridinoline:
		return "deoxypyridinoline"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Valid reports whether t is a known crosslink type.
func (t Type) Valid() bool { return t >= DHLNL && t <= Deoxypyridinoline }

// Divalent reports whether t is one of the immature divalent variants.
func (t Type) Divalent() bool { return t == DHLNL || t == HLNL }

func (t Type) baseStrength() float64 {
	if t.Divalent() {
		return constants.DivalentStrength
	}
	return constants.TrivalentStrength
}

func (t Type) baseStability() float64 {
	if t.Divalent() {
		return constants.DivalentStability
	}
	return constants.TrivalentStability
}

// MaturityState is the ordered maturation stage of a crosslink.
type MaturityState int

const (
	Immature MaturityState = iota
	Intermediate
	Mature
)

func (m MaturityState) String() string {
	switch m {
	case Immature:
		return "immature"
	case Intermediate:
		return "intermediate"
	case Mature:
		return "mature"
	default:
		return fmt.Sprintf("maturity(%d)", int(m))
	}
}

func (m MaturityState) factor() float64 {
	switch m {
	case Intermediate:
		return constants.IntermediateFactor
	case Mature:
		return constants.MatureFactor
	default:
		return constants.ImmatureFactor
	}
}

// maturityFor maps total formation age to a stage.
func maturityFor(age time.Duration) MaturityState {
	switch {
	case age < constants.IntermediateMaturityAge:
		return Immature
	case age < constants.MatureMaturityAge:
		return Intermediate
	default:
		return Mature
	}
}

// MaturationMode selects how properties follow maturity.
type MaturationMode int

const (
	// Compounding multiplies the current properties by the maturity factor on
	// every Mature call, so many small steps compound beyond one large step.
	Compounding MaturationMode = iota
	// FromBase recomputes properties from the type's base values on every call.
	FromBase
)

func (m MaturationMode) String() string {
	if m == FromBase {
		return "from-base"
	}
	return "compounding"
}

// ParseMaturationMode maps "from-base" to FromBase. Anything else compounds.
func ParseMaturationMode(s string) MaturationMode {
	if s == "from-base" || s == "from_base" {
		return FromBase
	}
	return Compounding
}

// MarshalText encodes the mode by name.
func (m MaturationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *MaturationMode) UnmarshalText(b []byte) error {
	*m = ParseMaturationMode(string(b))
	return nil
}

// Crosslink is one covalent bond between collagen molecules.
type Crosslink struct {
	typ      Type
	maturity MaturityState
	site     Site
	age      time.Duration

	strength         float64
	stability        float64
	mechanicalEffect float64

	mode   MaturationMode
	policy biology.FactorPolicy
}

// Option configures a Crosslink.
type Option func(*Crosslink)

// WithMaturationMode selects compounding or from-base maturation.
func WithMaturationMode(m MaturationMode) Option {
	return func(c *Crosslink) { c.mode = m }
}

// WithFactorPolicy sets how environment factors are bounded in stability checks.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(c *Crosslink) { c.policy = p }
}

// New creates an immature crosslink of type t at site.
func New(t Type, site Site, opts ...Option) (*Crosslink, error) {
	if !t.Valid() {
		return nil, biology.InvalidParameter("crosslink.New", "unknown crosslink type %s", t)
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}
	c := &Crosslink{
		typ:              t,
		maturity:         Immature,
		site:             site,
		strength:         t.baseStrength(),
		stability:        t.baseStability(),
		mechanicalEffect: 1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mature accumulates formation time, recomputes the maturity stage and
// applies the stage factor to strength, stability and mechanical effect.
func (c *Crosslink) Mature(d time.Duration) error {
	if d < 0 {
		return biology.InvalidParameter("crosslink.Mature", "negative duration %s", d)
	}
	c.age += d
	// age only grows, so the stage never regresses
	c.maturity = maturityFor(c.age)

	f := c.maturity.factor()
	switch c.mode {
	case FromBase:
		c.strength = c.typ.baseStrength() * f
		c.stability = c.typ.baseStability() * f
		c.mechanicalEffect = f
	default:
		c.strength *= f
		c.stability *= f
		c.mechanicalEffect *= f
	}
	return nil
}

// Advance implements biology.Temporal.
func (c *Crosslink) Advance(d time.Duration) error { return c.Mature(d) }

// Age implements biology.Temporal.
func (c *Crosslink) Age() time.Duration { return c.age }

// MaturityScore is formation age as a fraction of the mature age, capped at 1.
func (c *Crosslink) MaturityScore() float64 {
	return math.Min(1, float64(c.age)/float64(constants.MatureMaturityAge))
}

// StrengthContribution is the crosslink's contribution to tissue strength.
func (c *Crosslink) StrengthContribution() float64 {
	return c.strength * c.mechanicalEffect
}

// StabilityAt is stability scaled by the pH and temperature factors.
func (c *Crosslink) StabilityAt(cond biology.Conditions) float64 {
	return c.stability * cond.PHFactor(c.policy) * cond.TemperatureFactor(c.policy)
}

// IsStable reports whether environment-adjusted stability exceeds the
// stability threshold.
func (c *Crosslink) IsStable(pH, temperature float64) bool {
	return c.StabilityAt(biology.Conditions{PH: pH, Temperature: temperature}) > constants.CrosslinkStabilityThreshold
}

func (c *Crosslink) Type() Type                { return c.typ }
func (c *Crosslink) Maturity() MaturityState   { return c.maturity }
func (c *Crosslink) Site() Site                { return c.site }
func (c *Crosslink) Strength() float64         { return c.strength }
func (c *Crosslink) Stability() float64        { return c.stability }
func (c *Crosslink) MechanicalEffect() float64 { return c.mechanicalEffect }
