// Package strength aggregates matrix composition, molecular organization,
// bone architecture and mechanical properties into a whole-bone strength
// score, and adapts them to applied load.
package strength

import (
	"math"
	"time"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
	"github.com/nvandessel/osteon/internal/matrix"
)

// DefaultCrosslinkDensity is the whole-bone crosslink density a standalone
// model starts from.
const DefaultCrosslinkDensity = 0.7

// Model is the whole-bone strength model. Composition and crosslink density
// are read from, and adapted on, the matrix it holds.
type Model struct {
	matrix    *matrix.Matrix
	material  Material
	structure Structure
	mechanics Mechanics
	history   []LoadEvent
	policy    biology.FactorPolicy
}

// Option configures a Model.
type Option func(*Model)

// WithFactorPolicy sets how sub-factors are bounded.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(m *Model) { m.policy = p }
}

// WithMatrix shares an existing matrix instead of creating one.
func WithMatrix(mx *matrix.Matrix) Option {
	return func(m *Model) { m.matrix = mx }
}

// New returns a model with default adult bone parameters.
func New(opts ...Option) *Model {
	m := &Model{
		material: Material{
			Mineral: MineralPhase{
				CrystalSize:   Size3{Length: 50, Width: 25, Height: 3},
				Crystallinity: constants.DefaultCrystallinity,
			},
			Organic: OrganicPhase{FibrilDiameter: 80},
			Interface: Interface{
				BondingStrength: 0.8,
				ContactArea:     1000,
				EnergyTransfer:  0.9,
			},
			Density: constants.ReferenceDensity,
		},
		structure: Structure{
			Architecture: Architecture{
				Trabecular: Trabecular{Thickness: 0.2, Spacing: 0.5, Connectivity: 0.8},
				Cortical:   Cortical{Thickness: 2.0, Porosity: 0.05, Mineralization: 1.2},
				Anisotropy: 1.5,
			},
			Geometry: Geometry{
				CrossSection:    constants.ReferenceCrossSection,
				MomentOfInertia: constants.ReferenceMomentOfInertia,
				SectionModulus:  200,
			},
			Porosity: Porosity{Total: 0.15, Interconnectivity: 0.7},
		},
		mechanics: Mechanics{
			Elastic:   Elastic{YoungsModulus: constants.ReferenceYoungsModulus, PoissonsRatio: 0.3, ShearModulus: 7.7},
			Strength:  Ultimate{Tensile: 150, Compressive: constants.ReferenceCompressive, Shear: 75},
			Toughness: Toughness{WorkToFailure: 1000, FractureToughness: constants.ReferenceFractureToughness, FatigueResistance: 0.8},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.matrix == nil {
		m.matrix = matrix.New(matrix.WithFactorPolicy(m.policy))
		o := m.matrix.Organization()
		o.CrosslinkDensity = DefaultCrosslinkDensity
		// default is within [0, 1]
		_ = m.matrix.SetOrganization(o)
	}
	return m
}

// CalculateStrength is material × structural × mechanical factor.
func (m *Model) CalculateStrength() float64 {
	return m.Breakdown().Strength
}

// Breakdown evaluates every sub-factor without side effects.
func (m *Model) Breakdown() Breakdown {
	var b Breakdown
	p := m.policy
	comp := m.matrix.Composition()

	mineral := p.Deviation(comp.Mineral, constants.OptimalMineralFraction)
	organic := p.Deviation(comp.Organic, constants.OptimalOrganicFraction)
	b.Composition = (mineral + organic) / 2
	b.Organization = (m.material.Mineral.Crystallinity +
		m.matrix.Organization().CrosslinkDensity +
		m.material.Interface.BondingStrength) / 3
	b.Density = m.material.Density / constants.ReferenceDensity
	b.Material = b.Composition * b.Organization * b.Density

	arch := m.structure.Architecture
	b.Architecture = (arch.Trabecular.Connectivity +
		p.Apply(1-arch.Cortical.Porosity) +
		arch.Anisotropy/constants.ReferenceAnisotropy) / 3
	geo := m.structure.Geometry
	b.Geometry = (geo.CrossSection/constants.ReferenceCrossSection + geo.MomentOfInertia/constants.ReferenceMomentOfInertia) / 2
	b.Porosity = p.Apply(1 - m.structure.Porosity.Total)
	b.Structural = b.Architecture * b.Geometry * b.Porosity

	b.Elastic = m.mechanics.Elastic.YoungsModulus / constants.ReferenceYoungsModulus
	b.Compressive = m.mechanics.Strength.Compressive / constants.ReferenceCompressive
	b.Toughness = m.mechanics.Toughness.FractureToughness / constants.ReferenceFractureToughness
	b.Mechanical = (b.Elastic + b.Compressive + b.Toughness) / 3

	b.Strength = b.Material * b.Structural * b.Mechanical
	return b
}

// Strain returns the linear elastic strain for force on the current
// cross-section.
func (m *Model) Strain(force biology.Vector3) biology.Vector3 {
	k := m.mechanics.Elastic.YoungsModulus * m.structure.Geometry.CrossSection
	return biology.Vector3{X: force.X / k, Y: force.Y / k, Z: force.Z / k}
}

// ApplyLoad records the load and adapts material, structure and mechanics to
// the resulting strain. Adaptation only ever strengthens. A zero force is
// recorded but changes nothing.
func (m *Model) ApplyLoad(force biology.Vector3, duration time.Duration) (biology.Vector3, error) {
	const op = "strength.ApplyLoad"
	if !force.Finite() {
		return biology.Vector3{}, biology.InvalidParameter(op, "non-finite force %+v", force)
	}
	if duration < 0 {
		return biology.Vector3{}, biology.InvalidParameter(op, "negative duration %s", duration)
	}

	strain := m.Strain(force)
	mag := strain.Magnitude()
	m.history = append(m.history, LoadEvent{
		Force:     force,
		Strain:    strain,
		Magnitude: mag,
		Duration:  duration,
	})

	if err := m.adaptMaterial(mag); err != nil {
		return strain, err
	}
	m.adaptStructure(mag)
	m.adaptMechanics(mag)
	return strain, nil
}

func (m *Model) adaptMaterial(mag float64) error {
	if mag > constants.MineralStrainThreshold {
		mineral := m.matrix.Composition().Mineral
		// remodel renormalizes, so the composition still sums to 100
		if err := m.matrix.Remodel(mineral*(constants.MineralAdaptation-1), 0); err != nil {
			return err
		}
	}
	if mag > constants.CrosslinkStrainThreshold {
		o := m.matrix.Organization()
		o.CrosslinkDensity = biology.Clamp01(o.CrosslinkDensity * constants.CrosslinkAdaptation)
		if err := m.matrix.SetOrganization(o); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) adaptStructure(mag float64) {
	if mag > constants.PorosityStrainThreshold {
		m.structure.Porosity.Total *= constants.PorosityAdaptation
	}
	m.structure.Architecture.Anisotropy *= 1 + mag
}

func (m *Model) adaptMechanics(mag float64) {
	if mag > constants.CrosslinkStrainThreshold {
		m.mechanics.Elastic.YoungsModulus *= constants.ModulusAdaptation
	}
	if mag > constants.MineralStrainThreshold {
		m.mechanics.Strength.Compressive *= constants.CompressiveAdaptation
	}
}

// SetCrystallinity updates the mineral phase crystallinity.
func (m *Model) SetCrystallinity(v float64) error {
	if !biology.Finite(v) || v < 0 || v > 1 {
		return biology.InvalidParameter("strength.SetCrystallinity", "crystallinity %v outside [0, 1]", v)
	}
	m.material.Mineral.Crystallinity = v
	return nil
}

// SetFibrilDiameter updates the organic phase fibril diameter.
func (m *Model) SetFibrilDiameter(nm float64) error {
	if !biology.Finite(nm) || nm <= 0 {
		return biology.InvalidParameter("strength.SetFibrilDiameter", "diameter %v must be positive", nm)
	}
	m.material.Organic.FibrilDiameter = nm
	return nil
}

// LoadingHistory returns a copy of every applied load, oldest first.
func (m *Model) LoadingHistory() []LoadEvent {
	return append([]LoadEvent(nil), m.history...)
}

// CumulativeStrain sums the strain magnitude of every recorded load.
func (m *Model) CumulativeStrain() float64 {
	var total float64
	for _, e := range m.history {
		total += e.Magnitude
	}
	return total
}

// PeakStrain is the largest recorded strain magnitude.
func (m *Model) PeakStrain() float64 {
	var peak float64
	for _, e := range m.history {
		peak = math.Max(peak, e.Magnitude)
	}
	return peak
}

func (m *Model) Matrix() *matrix.Matrix { return m.matrix }
func (m *Model) Material() Material     { return m.material }
func (m *Model) Structure() Structure   { return m.structure }
func (m *Model) Mechanics() Mechanics   { return m.mechanics }
