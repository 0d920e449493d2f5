// Package crystal models the hydroxyapatite mineral phase of bone: its
// composition, lattice, physical properties and a stability score under a
// given chemical environment.
package crystal

import (
	"fmt"
	"math"
	"strings"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// IonType is an ion that can substitute into the apatite lattice.
type IonType int

const (
	Carbonate IonType = iota
	Fluoride
	Chloride
	Magnesium
	Strontium
)

func (i IonType) String() string {
	switch i {
	case Carbonate:
		return "carbonate"
	case Fluoride:
		return "fluoride"
	case Chloride:
		return "chloride"
	case Magnesium:
		return "magnesium"
	case Strontium:
		return "strontium"
	default:
		return fmt.Sprintf("ion(%d)", int(i))
	}
}

func (i IonType) valid() bool { return i >= Carbonate && i <= Strontium }

// ParseIonType maps an ion name such as "fluoride" to its IonType.
func ParseIonType(name string) (IonType, error) {
	for i := Carbonate; i <= Strontium; i++ {
		if strings.EqualFold(name, i.String()) {
			return i, nil
		}
	}
	return 0, biology.InvalidParameter("crystal.ParseIonType", "unknown ion %q", name)
}

// Site is a lattice position an ion can occupy.
type Site int

const (
	Calcium1 Site = iota
	Calcium2
	Phosphate
	Hydroxyl
)

func (s Site) String() string {
	switch s {
	case Calcium1:
		return "Ca1"
	case Calcium2:
		return "Ca2"
	case Phosphate:
		return "PO4"
	case Hydroxyl:
		return "OH"
	default:
		return fmt.Sprintf("site(%d)", int(s))
	}
}

func (s Site) valid() bool { return s >= Calcium1 && s <= Hydroxyl }

// ParseSite maps a site label such as "OH" to its Site.
func ParseSite(label string) (Site, error) {
	for s := Calcium1; s <= Hydroxyl; s++ {
		if strings.EqualFold(label, s.String()) {
			return s, nil
		}
	}
	return 0, biology.InvalidParameter("crystal.ParseSite", "unknown site %q", label)
}

// Substitution records how much of an ion occupies a site, in percent.
type Substitution struct {
	Ion     IonType `json:"ion"`
	Site    Site    `json:"site"`
	Percent float64 `json:"percent"`
}

// Dimensions are crystal extents in nm.
type Dimensions struct {
	Length float64 // c-axis
	Width  float64 // a-axis
	Height float64 // b-axis
}

// Orientation angles in radians.
type Orientation struct {
	Theta float64 // angle with the c-axis
	Phi   float64 // azimuth
	Psi   float64 // rotation about the c-axis
}

// Lattice holds hexagonal lattice parameters (nm, degrees).
type Lattice struct {
	A, C         float64
	Alpha, Gamma float64
}

// Crystal is a single hydroxyapatite crystal. It is not safe for concurrent
// mutation.
type Crystal struct {
	caPRatio      float64
	carbonate     float64
	substitutions []Substitution

	dimensions  Dimensions
	orientation Orientation
	lattice     Lattice

	solubility    float64
	surfaceCharge float64
	crystallinity float64

	policy biology.FactorPolicy
}

// Option configures a Crystal.
type Option func(*Crystal)

// WithFactorPolicy sets how environment and composition factors are bounded.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(c *Crystal) { c.policy = p }
}

// New returns a bone-mineral crystal with default biological constants.
func New(opts ...Option) *Crystal {
	c := &Crystal{
		caPRatio:   constants.OptimalCaPRatio,
		carbonate:  constants.DefaultCarbonateContent,
		dimensions: Dimensions{Length: 50, Width: 25, Height: 25},
		lattice: Lattice{
			A:     0.9418,
			C:     0.6884,
			Alpha: 120,
			Gamma: 90,
		},
		solubility:    constants.BaseSolubility,
		surfaceCharge: constants.BaseSurfaceCharge,
		crystallinity: constants.DefaultCrystallinity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Volume returns the crystal volume in nm³.
func (c *Crystal) Volume() float64 {
	d := c.dimensions
	return d.Length * d.Width * d.Height
}

// SurfaceArea returns the crystal surface area in nm².
func (c *Crystal) SurfaceArea() float64 {
	d := c.dimensions
	return 2 * (d.Length*d.Width + d.Length*d.Height + d.Width*d.Height)
}

// AddSubstitution merges percent of ion into site, or records a new
// substitution, then rescales solubility, crystallinity and surface charge.
// Crystallinity is scaled in place, so the final state depends on call order.
func (c *Crystal) AddSubstitution(ion IonType, site Site, percent float64) error {
	const op = "crystal.AddSubstitution"
	if !ion.valid() || !site.valid() {
		return biology.InvalidParameter(op, "unknown ion %s or site %s", ion, site)
	}
	if !biology.Finite(percent) || percent < 0 {
		return biology.InvalidParameter(op, "percent %v must be a finite non-negative number", percent)
	}
	if c.totalSubstitution()+percent > 100 {
		return biology.InvalidParameter(op, "total substitution would exceed 100%%")
	}

	merged := false
	for i := range c.substitutions {
		if c.substitutions[i].Ion == ion && c.substitutions[i].Site == site {
			c.substitutions[i].Percent += percent
			merged = true
			break
		}
	}
	if !merged {
		c.substitutions = append(c.substitutions, Substitution{Ion: ion, Site: site, Percent: percent})
	}

	c.updateProperties()
	return nil
}

func (c *Crystal) totalSubstitution() float64 {
	var total float64
	for _, s := range c.substitutions {
		total += s.Percent
	}
	return total
}

func (c *Crystal) updateProperties() {
	effect := c.totalSubstitution() / 100
	c.solubility = constants.BaseSolubility * (1 + effect)
	c.crystallinity *= 1 - effect/2
	c.surfaceCharge = constants.BaseSurfaceCharge * (1 + effect)
}

// Stability scores the crystal in [0, 1] (unbounded below under RawFactors)
// as the product of composition, structure and environment factors.
func (c *Crystal) Stability(pH, temperature float64) float64 {
	return c.compositionFactor() * c.structureFactor() * c.environmentFactor(pH, temperature)
}

// StabilityAt implements biology.ChemicallyActive.
func (c *Crystal) StabilityAt(cond biology.Conditions) float64 {
	return c.Stability(cond.PH, cond.Temperature)
}

func (c *Crystal) compositionFactor() float64 {
	ratio := c.policy.Deviation(c.caPRatio, constants.OptimalCaPRatio)
	carbonate := c.policy.Apply(1 - c.carbonate/100)
	return (ratio + carbonate) / 2
}

func (c *Crystal) structureFactor() float64 {
	size := c.policy.Apply(1 - math.Abs(c.dimensions.Length-constants.OptimalCrystalLength)/constants.CrystalLengthTolerance)
	return (c.crystallinity + size) / 2
}

func (c *Crystal) environmentFactor(pH, temperature float64) float64 {
	ph := c.policy.Deviation(pH, constants.OptimalPH)
	temp := c.policy.Deviation(temperature, constants.OptimalTemperature)
	return (ph + temp) / 2
}

// OrientationScore is how well the crystal c-axis aligns with the fibril
// axis, weighted by crystallinity. It feeds matrix crystal orientation.
func (c *Crystal) OrientationScore() float64 {
	return biology.Clamp01(c.crystallinity * math.Abs(math.Cos(c.orientation.Theta)))
}

// SetOrientation replaces the crystal orientation angles.
func (c *Crystal) SetOrientation(o Orientation) error {
	if !biology.Finite(o.Theta) || !biology.Finite(o.Phi) || !biology.Finite(o.Psi) {
		return biology.InvalidParameter("crystal.SetOrientation", "non-finite angle in %+v", o)
	}
	c.orientation = o
	return nil
}

// Substitutions returns a copy of the recorded substitutions.
func (c *Crystal) Substitutions() []Substitution {
	out := make([]Substitution, len(c.substitutions))
	copy(out, c.substitutions)
	return out
}

func (c *Crystal) CaPRatio() float64         { return c.caPRatio }
func (c *Crystal) CarbonateContent() float64 { return c.carbonate }
func (c *Crystal) Solubility() float64       { return c.solubility }
func (c *Crystal) SurfaceCharge() float64    { return c.surfaceCharge }
func (c *Crystal) Crystallinity() float64    { return c.crystallinity }
func (c *Crystal) Dimensions() Dimensions    { return c.dimensions }
func (c *Crystal) Orientation() Orientation  { return c.orientation }
func (c *Crystal) Lattice() Lattice          { return c.lattice }
