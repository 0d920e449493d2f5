package strength

import (
	"time"

	"github.com/nvandessel/osteon/internal/biology"
)

// Size3 is a crystal extent in nm.
type Size3 struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Orientation3 holds orientation angles in radians.
type Orientation3 struct {
	Theta float64 `json:"theta"`
	Phi   float64 `json:"phi"`
	Psi   float64 `json:"psi"`
}

// MineralPhase describes the mineral side of molecular organization.
type MineralPhase struct {
	CrystalSize   Size3        `json:"crystal_size"`
	Orientation   Orientation3 `json:"orientation"`
	Crystallinity float64      `json:"crystallinity"`
}

// OrganicPhase describes the collagen side of molecular organization.
// Crosslink density lives on the shared matrix.
type OrganicPhase struct {
	FibrilDiameter    float64      `json:"fibril_diameter"` // nm
	FibrilOrientation Orientation3 `json:"fibril_orientation"`
}

// Interface describes mineral-collagen bonding.
type Interface struct {
	BondingStrength float64 `json:"bonding_strength"`
	ContactArea     float64 `json:"contact_area"` // nm²
	EnergyTransfer  float64 `json:"energy_transfer"`
}

// Material is the material level of the model.
type Material struct {
	Mineral   MineralPhase `json:"mineral"`
	Organic   OrganicPhase `json:"organic"`
	Interface Interface    `json:"interface"`
	Density   float64      `json:"density"` // g/cm³
}

// Trabecular architecture, lengths in mm.
type Trabecular struct {
	Thickness    float64 `json:"thickness"`
	Spacing      float64 `json:"spacing"`
	Connectivity float64 `json:"connectivity"`
}

// Cortical architecture.
type Cortical struct {
	Thickness      float64 `json:"thickness"` // mm
	Porosity       float64 `json:"porosity"`
	Mineralization float64 `json:"mineralization"`
}

// Architecture combines trabecular and cortical bone with anisotropy.
type Architecture struct {
	Trabecular Trabecular `json:"trabecular"`
	Cortical   Cortical   `json:"cortical"`
	Anisotropy float64    `json:"anisotropy"`
}

// Geometry of the bone cross-section.
type Geometry struct {
	CrossSection    float64 `json:"cross_section"`     // mm²
	MomentOfInertia float64 `json:"moment_of_inertia"` // mm⁴
	SectionModulus  float64 `json:"section_modulus"`   // mm³
}

// Porosity of the whole bone.
type Porosity struct {
	Total             float64 `json:"total"`
	Interconnectivity float64 `json:"interconnectivity"`
}

// Structure is the structural level of the model.
type Structure struct {
	Architecture Architecture `json:"architecture"`
	Geometry     Geometry     `json:"geometry"`
	Porosity     Porosity     `json:"porosity"`
}

// Elastic properties.
type Elastic struct {
	YoungsModulus float64 `json:"youngs_modulus"` // GPa
	PoissonsRatio float64 `json:"poissons_ratio"`
	ShearModulus  float64 `json:"shear_modulus"` // GPa
}

// Ultimate strengths in MPa.
type Ultimate struct {
	Tensile     float64 `json:"tensile"`
	Compressive float64 `json:"compressive"`
	Shear       float64 `json:"shear"`
}

// Toughness properties.
type Toughness struct {
	WorkToFailure     float64 `json:"work_to_failure"`    // J/m²
	FractureToughness float64 `json:"fracture_toughness"` // MPa·m½
	FatigueResistance float64 `json:"fatigue_resistance"`
}

// Mechanics is the mechanical level of the model.
type Mechanics struct {
	Elastic   Elastic   `json:"elastic"`
	Strength  Ultimate  `json:"strength"`
	Toughness Toughness `json:"toughness"`
}

// LoadEvent is one entry of the loading history.
type LoadEvent struct {
	Force     biology.Vector3 `json:"force"`
	Strain    biology.Vector3 `json:"strain"`
	Magnitude float64         `json:"magnitude"`
	Duration  time.Duration   `json:"duration"`
}

// Breakdown exposes every factor of a strength evaluation.
type Breakdown struct {
	Material     float64 `json:"material"`
	Composition  float64 `json:"composition"`
	Organization float64 `json:"organization"`
	Density      float64 `json:"density"`

	Structural   float64 `json:"structural"`
	Architecture float64 `json:"architecture"`
	Geometry     float64 `json:"geometry"`
	Porosity     float64 `json:"porosity"`

	Mechanical  float64 `json:"mechanical"`
	Elastic     float64 `json:"elastic"`
	Compressive float64 `json:"compressive"`
	Toughness   float64 `json:"toughness"`

	Strength float64 `json:"strength"`
}
