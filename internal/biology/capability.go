package biology

import "time"

// Temporal is implemented by entities whose state evolves with elapsed time.
type Temporal interface {
	// Advance moves the entity forward by dt.
	Advance(dt time.Duration) error
	// Age reports the total time the entity has been advanced.
	Age() time.Duration
}

// MechanicallyResponsive is implemented by entities that adapt to applied load.
type MechanicallyResponsive interface {
	// ApplyLoad applies force for the given duration and returns the resulting strain.
	ApplyLoad(force Vector3, duration time.Duration) (Vector3, error)
}

// ChemicallyActive is implemented by entities whose stability depends on
// their chemical environment.
type ChemicallyActive interface {
	StabilityAt(c Conditions) float64
}

// Days converts a duration to fractional days.
func Days(d time.Duration) float64 {
	return d.Hours() / 24
}

// FromDays converts fractional days to a duration.
func FromDays(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}
