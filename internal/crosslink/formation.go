package crosslink

import (
	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// FormationConfig carries the policies applied to a formation and to every
// crosslink it creates. The zero value clamps factors and compounds maturation.
type FormationConfig struct {
	Policy     biology.FactorPolicy
	Maturation MaturationMode
}

// Formation is an enzyme-driven crosslink formation process under fixed
// conditions.
type Formation struct {
	activity   float64
	conditions biology.Conditions
	rate       float64
	cfg        FormationConfig
}

// NewFormation computes the formation rate for enzyme activity under c.
func NewFormation(activity float64, c biology.Conditions, cfg FormationConfig) (*Formation, error) {
	if !biology.Finite(activity) || activity < 0 {
		return nil, biology.InvalidParameter("crosslink.NewFormation", "activity %v must be finite and non-negative", activity)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	f := &Formation{activity: activity, conditions: c, cfg: cfg}
	f.rate = f.computeRate()
	return f, nil
}

func (f *Formation) computeRate() float64 {
	c, p := f.conditions, f.cfg.Policy
	return f.activity * c.PHFactor(p) * c.TemperatureFactor(p) * p.Apply(c.Oxygen)
}

// Rate is activity × pH factor × temperature factor × oxygen.
func (f *Formation) Rate() float64 { return f.rate }

// Activity is the enzyme activity the formation was built from.
func (f *Formation) Activity() float64 { return f.activity }

// Conditions returns the current formation conditions.
func (f *Formation) Conditions() biology.Conditions { return f.conditions }

// Form creates a crosslink at site when the rate exceeds the formation
// threshold. High oxygen yields DHLNL, otherwise HLNL. A rate at or below the
// threshold returns false and is not an error.
func (f *Formation) Form(site Site) (*Crosslink, bool, error) {
	if f.rate <= constants.FormationRateThreshold {
		return nil, false, nil
	}
	t := HLNL
	if f.conditions.Oxygen > constants.HighOxygenThreshold {
		t = DHLNL
	}
	c, err := New(t, site, WithFactorPolicy(f.cfg.Policy), WithMaturationMode(f.cfg.Maturation))
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}

// UpdateConditions replaces the conditions and recomputes the rate.
func (f *Formation) UpdateConditions(c biology.Conditions) error {
	if err := c.Validate(); err != nil {
		return err
	}
	f.conditions = c
	f.rate = f.computeRate()
	return nil
}
