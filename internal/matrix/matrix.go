// Package matrix models the bone extracellular matrix as an aggregate of
// composition fractions, organization parameters and derived properties,
// plus the staged mineralization process that feeds it.
package matrix

import (
	"math"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// Composition fractions in percent. They always sum to 100.
type Composition struct {
	Mineral float64 `json:"mineral"`
	Organic float64 `json:"organic"`
	Water   float64 `json:"water"`
	Protein float64 `json:"protein"`
}

// Sum returns the total of all four fractions.
func (c Composition) Sum() float64 {
	return c.Mineral + c.Organic + c.Water + c.Protein
}

// Properties are derived linearly from mineral content.
type Properties struct {
	Density   float64 `json:"density"`   // g/cm³
	Stiffness float64 `json:"stiffness"` // GPa
	Strength  float64 `json:"strength"`  // MPa
	Porosity  float64 `json:"porosity"`
}

// Organization parameters, each in [0, 1].
type Organization struct {
	FibrilAlignment    float64 `json:"fibril_alignment"`
	CrystalOrientation float64 `json:"crystal_orientation"`
	CrosslinkDensity   float64 `json:"crosslink_density"`
}

// Validate rejects values outside [0, 1].
func (o Organization) Validate() error {
	for _, v := range []float64{o.FibrilAlignment, o.CrystalOrientation, o.CrosslinkDensity} {
		if !biology.Finite(v) || v < 0 || v > 1 {
			return biology.InvalidParameter("matrix.Organization", "value %v outside [0, 1] in %+v", v, o)
		}
	}
	return nil
}

// Clamped returns o with every value bounded to [0, 1].
func (o Organization) Clamped() Organization {
	return Organization{
		FibrilAlignment:    biology.Clamp01(o.FibrilAlignment),
		CrystalOrientation: biology.Clamp01(o.CrystalOrientation),
		CrosslinkDensity:   biology.Clamp01(o.CrosslinkDensity),
	}
}

// Matrix is the bone matrix aggregate. It exclusively owns its composition.
type Matrix struct {
	composition  Composition
	properties   Properties
	organization Organization
	policy       biology.FactorPolicy
}

// Option configures a Matrix.
type Option func(*Matrix)

// WithFactorPolicy sets how composition factors are bounded.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(m *Matrix) { m.policy = p }
}

// New returns a matrix with the default adult bone composition.
func New(opts ...Option) *Matrix {
	m := &Matrix{
		composition: Composition{
			Mineral: constants.OptimalMineralFraction,
			Organic: constants.OptimalOrganicFraction,
			Water:   constants.DefaultWaterFraction,
			Protein: constants.DefaultProteinFraction,
		},
		properties: Properties{
			Density:   constants.DefaultMatrixDensity,
			Stiffness: constants.DefaultMatrixStiffness,
			Strength:  constants.DefaultMatrixStrength,
			Porosity:  constants.DefaultMatrixPorosity,
		},
		organization: Organization{
			FibrilAlignment:    constants.DefaultFibrilAlignment,
			CrystalOrientation: constants.DefaultCrystalOrientation,
			CrosslinkDensity:   constants.DefaultCrosslinkDensity,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CalculateStrength is base strength × composition factor × organization factor.
func (m *Matrix) CalculateStrength() float64 {
	return m.properties.Strength * m.CompositionFactor() * m.OrganizationFactor()
}

// CompositionFactor rewards mineral and organic fractions near their optima.
func (m *Matrix) CompositionFactor() float64 {
	mineral := m.policy.Apply(1 - math.Abs(m.composition.Mineral-constants.OptimalMineralFraction)/constants.CompositionTotal)
	organic := m.policy.Apply(1 - math.Abs(m.composition.Organic-constants.OptimalOrganicFraction)/constants.CompositionTotal)
	return (mineral + organic) / 2
}

// OrganizationFactor is the unweighted mean of the organization parameters.
func (m *Matrix) OrganizationFactor() float64 {
	o := m.organization
	return (o.FibrilAlignment + o.CrystalOrientation + o.CrosslinkDensity) / 3
}

// Remodel adds the deltas, rescales all four fractions back to 100 and
// recomputes the derived properties. Water and protein keep their relative
// ratio. Deltas that leave a fraction negative are rejected without change.
func (m *Matrix) Remodel(mineralDelta, organicDelta float64) error {
	const op = "matrix.Remodel"
	if !biology.Finite(mineralDelta) || !biology.Finite(organicDelta) {
		return biology.InvalidParameter(op, "non-finite delta (%v, %v)", mineralDelta, organicDelta)
	}
	next := m.composition
	next.Mineral += mineralDelta
	next.Organic += organicDelta
	if next.Mineral < 0 || next.Organic < 0 {
		return biology.InvalidParameter(op, "delta (%v, %v) leaves a negative fraction", mineralDelta, organicDelta)
	}
	total := next.Sum()
	if total <= 0 {
		return biology.InvalidParameter(op, "composition total %v is not positive", total)
	}

	scale := constants.CompositionTotal / total
	next.Mineral *= scale
	next.Organic *= scale
	next.Water *= scale
	next.Protein *= scale
	m.composition = next

	m.updateProperties()
	return nil
}

func (m *Matrix) updateProperties() {
	mineral := m.composition.Mineral
	m.properties = Properties{
		Density:   1.0 + mineral/100,
		Stiffness: 15.0 + mineral/10,
		Strength:  100.0 + mineral/2,
		Porosity:  0.2 - mineral/1000,
	}
}

// SetOrganization replaces the organization parameters.
func (m *Matrix) SetOrganization(o Organization) error {
	if err := o.Validate(); err != nil {
		return err
	}
	m.organization = o
	return nil
}

// MineralizationDegree is the mineral fraction on a 0-1 scale.
func (m *Matrix) MineralizationDegree() float64 {
	return m.composition.Mineral / constants.CompositionTotal
}

func (m *Matrix) Composition() Composition   { return m.composition }
func (m *Matrix) Properties() Properties     { return m.properties }
func (m *Matrix) Organization() Organization { return m.organization }
