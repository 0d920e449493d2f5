// Package constants holds the named biological reference constants used
// throughout osteon.
package constants

import "time"

// Physiological reference environment.
const (
	// OptimalPH is the physiological pH every pH deviation factor is measured against.
	OptimalPH = 7.4

	// OptimalTemperature is body temperature in Celsius.
	OptimalTemperature = 37.0

	// DefaultOxygen is the oxygen availability used when none is supplied (0.0-1.0).
	DefaultOxygen = 0.9

	// MinPH and MaxPH bound the physically meaningful pH scale.
	MinPH = 0.0
	MaxPH = 14.0

	// AbsoluteZero is the lowest admissible temperature in Celsius.
	AbsoluteZero = -273.15
)

// Hydroxyapatite crystal constants.
const (
	// OptimalCaPRatio is the stoichiometric calcium to phosphate ratio.
	OptimalCaPRatio = 1.67

	// DefaultCarbonateContent is the carbonate substitution percentage of bone mineral.
	DefaultCarbonateContent = 3.0

	// OptimalCrystalLength is the c-axis length (nm) with maximal structural stability.
	OptimalCrystalLength = 50.0

	// CrystalLengthTolerance normalizes deviation from OptimalCrystalLength.
	CrystalLengthTolerance = 100.0

	// BaseSolubility is the solubility product of pure hydroxyapatite.
	BaseSolubility = 1e-117

	// BaseSurfaceCharge is the surface charge density of pure hydroxyapatite.
	BaseSurfaceCharge = -0.5

	// DefaultCrystallinity is the crystallinity index of fresh bone mineral.
	DefaultCrystallinity = 0.85
)

// Collagen constants.
const (
	// CollagenChainLength is the number of residues per alpha chain.
	CollagenChainLength = 1050

	// BaseThermalStability is the melting temperature (Celsius) of an unmodified helix.
	BaseThermalStability = 37.0

	// HelixPitch is the triple helix pitch in nm.
	HelixPitch = 8.6

	// FibrilDPeriod is the axial D-period of a collagen fibril in nm.
	FibrilDPeriod = 67.0

	// BaseFibrilDiameter and BaseFibrilDensity describe a freshly assembled fibril.
	BaseFibrilDiameter = 50.0
	BaseFibrilDensity  = 0.8

	// BaseCollagenModulus (GPa), BaseCollagenStrength (MPa) and BaseFailureStrain
	// describe an uncrosslinked fibril.
	BaseCollagenModulus  = 1.2
	BaseCollagenStrength = 120.0
	BaseFailureStrain    = 0.13

	// CrosslinkMechanicalGain is the per-crosslink increase in fibril modulus and strength.
	CrosslinkMechanicalGain = 0.1

	// HydroxylationBonus is the stability gain per hydroxylation event.
	HydroxylationBonus = 0.1

	// MatureCrosslinkBonus is the stability gain per mature crosslink.
	MatureCrosslinkBonus = 0.2

	// MatureCrosslinkScore is the maturity score above which a crosslink counts as mature.
	MatureCrosslinkScore = 0.8

	// MinAssemblyPH and MaxAssemblyPH bound the pH window for fibrillogenesis.
	MinAssemblyPH = 6.0
	MaxAssemblyPH = 8.5
)

// Crosslink constants.
const (
	// DivalentStrength and DivalentStability apply to immature DHLNL/HLNL crosslinks.
	DivalentStrength  = 1.0
	DivalentStability = 0.7

	// TrivalentStrength and TrivalentStability apply to mature pyridinoline crosslinks.
	TrivalentStrength  = 2.0
	TrivalentStability = 0.9

	// IntermediateMaturityAge and MatureMaturityAge are the formation ages at which a
	// crosslink becomes Intermediate and Mature.
	IntermediateMaturityAge = 7 * 24 * time.Hour
	MatureMaturityAge       = 30 * 24 * time.Hour

	// Maturity multipliers applied on every maturation update.
	ImmatureFactor     = 1.0
	IntermediateFactor = 1.5
	MatureFactor       = 2.0

	// CrosslinkStabilityThreshold is the minimum environment-adjusted stability.
	CrosslinkStabilityThreshold = 0.5

	// FormationRateThreshold is the minimum formation rate for a crosslink to form.
	FormationRateThreshold = 0.5

	// HighOxygenThreshold selects DHLNL over HLNL during formation.
	HighOxygenThreshold = 0.8
)

// Lysyl oxidase constants.
const (
	// LOXCatalyticRate is k_cat in relative units.
	LOXCatalyticRate = 0.5

	// LOXMichaelisConstant is K_m in molar.
	LOXMichaelisConstant = 5e-6

	// LOXCopperAffinity is the copper binding affinity in molar.
	LOXCopperAffinity = 1e-9

	// LOXPropeptideLength and LOXCleavageSite describe the propeptide domain.
	LOXPropeptideLength = 147
	LOXCleavageSite     = 142

	// CatalysisThreshold is the minimum activity for a catalytic event to be recorded.
	CatalysisThreshold = 0.5
)

// Bone matrix constants.
const (
	// OptimalMineralFraction and OptimalOrganicFraction are the strongest composition
	// percentages.
	OptimalMineralFraction = 65.0
	OptimalOrganicFraction = 25.0

	// DefaultWaterFraction and DefaultProteinFraction complete the default composition.
	DefaultWaterFraction   = 5.0
	DefaultProteinFraction = 5.0

	// CompositionTotal is the sum every composition must hold after a change.
	CompositionTotal = 100.0

	// Default matrix properties: density g/cm³, stiffness GPa, strength MPa, porosity.
	DefaultMatrixDensity   = 2.0
	DefaultMatrixStiffness = 20.0
	DefaultMatrixStrength  = 150.0
	DefaultMatrixPorosity  = 0.1

	// Default organization parameters.
	DefaultFibrilAlignment    = 0.8
	DefaultCrystalOrientation = 0.7
	DefaultCrosslinkDensity   = 0.6

	// PrimaryStageDays and SecondaryStageDays are the cumulative day thresholds of the
	// mineralization stages.
	PrimaryStageDays   = 5.0
	SecondaryStageDays = 30.0

	// Mineral deposition rate multipliers per stage.
	PrimaryRateFactor   = 1.0
	SecondaryRateFactor = 0.5
	MatureRateFactor    = 0.1
)

// Whole-bone reference values used to normalize strength sub-factors.
const (
	ReferenceDensity           = 2.0
	ReferenceAnisotropy        = 2.0
	ReferenceCrossSection      = 100.0
	ReferenceMomentOfInertia   = 1000.0
	ReferenceYoungsModulus     = 20.0
	ReferenceCompressive       = 200.0
	ReferenceFractureToughness = 3.0
)

// Mechanostat strain thresholds and adaptation factors.
const (
	// CrosslinkStrainThreshold gates crosslink density and elastic modulus adaptation.
	CrosslinkStrainThreshold = 0.001

	// MineralStrainThreshold gates mineral content and compressive strength adaptation.
	MineralStrainThreshold = 0.002

	// PorosityStrainThreshold gates porosity reduction.
	PorosityStrainThreshold = 0.003

	MineralAdaptation     = 1.01
	CrosslinkAdaptation   = 1.005
	PorosityAdaptation    = 0.99
	ModulusAdaptation     = 1.01
	CompressiveAdaptation = 1.005
)

// Coupled sample constants.
const (
	// CrosslinkSaturation is the summed crosslink contribution that saturates the
	// matrix crosslink density increment.
	CrosslinkSaturation = 40.0

	// DefaultEnzymeExpression is the lysyl oxidase expression level of a coupled sample.
	DefaultEnzymeExpression = 1.5

	// DefaultMineralizationRate is the mineral percentage deposited per day in the
	// primary stage.
	DefaultMineralizationRate = 0.05
)
