package biology

import (
	"math"

	"github.com/nvandessel/osteon/internal/constants"
)

// FactorPolicy decides what happens to a deviation factor that leaves [0, 1].
// A factor of the form 1 - |actual-optimum|/optimum turns negative once the
// input is more than one optimum away, and two negative factors multiply
// into a spurious positive score.
type FactorPolicy int

const (
	// ClampFactors bounds every deviation factor to [0, 1].
	ClampFactors FactorPolicy = iota
	// RawFactors leaves deviation factors unbounded.
	RawFactors
)

func (p FactorPolicy) String() string {
	switch p {
	case ClampFactors:
		return "clamp"
	case RawFactors:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseFactorPolicy maps "clamp"/"raw" to a policy. Unknown values clamp.
func ParseFactorPolicy(s string) FactorPolicy {
	if s == "raw" {
		return RawFactors
	}
	return ClampFactors
}

// MarshalText encodes the policy by name.
func (p FactorPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a policy name.
func (p *FactorPolicy) UnmarshalText(b []byte) error {
	*p = ParseFactorPolicy(string(b))
	return nil
}

// Apply enforces the policy on a computed factor.
func (p FactorPolicy) Apply(factor float64) float64 {
	if p == RawFactors {
		return factor
	}
	return Clamp01(factor)
}

// Deviation returns 1 - |actual-optimum|/optimum under the policy.
func (p FactorPolicy) Deviation(actual, optimum float64) float64 {
	return p.Apply(RawDeviation(actual, optimum))
}

// RawDeviation returns 1 - |actual-optimum|/optimum without bounding.
func RawDeviation(actual, optimum float64) float64 {
	return 1 - math.Abs(actual-optimum)/optimum
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Conditions is the chemical environment a reaction or structure sits in.
type Conditions struct {
	PH          float64 `json:"ph" yaml:"ph"`
	Temperature float64 `json:"temperature" yaml:"temperature"` // Celsius
	Oxygen      float64 `json:"oxygen" yaml:"oxygen"`           // availability, 0.0-1.0
}

// Physiological returns body conditions with default oxygen availability.
func Physiological() Conditions {
	return Conditions{
		PH:          constants.OptimalPH,
		Temperature: constants.OptimalTemperature,
		Oxygen:      constants.DefaultOxygen,
	}
}

// Validate rejects non-finite or physically impossible conditions.
func (c Conditions) Validate() error {
	const op = "biology.Conditions"
	if !Finite(c.PH) || !Finite(c.Temperature) || !Finite(c.Oxygen) {
		return InvalidParameter(op, "non-finite value in %+v", c)
	}
	if c.PH < constants.MinPH || c.PH > constants.MaxPH {
		return InvalidParameter(op, "pH %.3f outside [%.0f, %.0f]", c.PH, constants.MinPH, constants.MaxPH)
	}
	if c.Temperature < constants.AbsoluteZero {
		return InvalidParameter(op, "temperature %.2f below absolute zero", c.Temperature)
	}
	if c.Oxygen < 0 {
		return InvalidParameter(op, "oxygen %.3f is negative", c.Oxygen)
	}
	return nil
}

// PHFactor is the pH deviation factor against constants.OptimalPH.
func (c Conditions) PHFactor(p FactorPolicy) float64 {
	return p.Deviation(c.PH, constants.OptimalPH)
}

// TemperatureFactor is the temperature deviation factor against constants.OptimalTemperature.
func (c Conditions) TemperatureFactor(p FactorPolicy) float64 {
	return p.Deviation(c.Temperature, constants.OptimalTemperature)
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
