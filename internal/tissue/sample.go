// Package tissue couples the molecular models into one bone sample: enzyme
// catalysis forms crosslinks on collagen, mineralization and crosslinking
// reshape the matrix, and the strength model reads and adapts that matrix.
package tissue

import (
	"math"
	"time"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/collagen"
	"github.com/nvandessel/osteon/internal/constants"
	"github.com/nvandessel/osteon/internal/crosslink"
	"github.com/nvandessel/osteon/internal/crystal"
	"github.com/nvandessel/osteon/internal/enzyme"
	"github.com/nvandessel/osteon/internal/matrix"
	"github.com/nvandessel/osteon/internal/strength"
)

// Config selects the policies and rates of a sample.
type Config struct {
	Policy             biology.FactorPolicy     `json:"policy"`
	Maturation         crosslink.MaturationMode `json:"maturation"`
	Activation         enzyme.ActivationPolicy  `json:"activation"`
	EnzymeExpression   float64                  `json:"enzyme_expression"`
	MineralizationRate float64                  `json:"mineralization_rate"` // percent per day
}

// DefaultConfig clamps factors, retries activation and matures crosslinks
// from base values so repeated steps do not compound.
func DefaultConfig() Config {
	return Config{
		Policy:             biology.ClampFactors,
		Maturation:         crosslink.FromBase,
		Activation:         enzyme.RetryActivation,
		EnzymeExpression:   constants.DefaultEnzymeExpression,
		MineralizationRate: constants.DefaultMineralizationRate,
	}
}

// Helical partner residues of the N- and C-telopeptide lysines.
var crosslinkSites = [...]crosslink.Site{
	{
		Telopeptide: crosslink.NTerminal,
		Helix:       crosslink.HelicalPosition{Residue: 930, Chain: 0},
		Residues:    [2]crosslink.Residue{crosslink.Lysine, crosslink.Hydroxylysine},
	},
	{
		Telopeptide: crosslink.CTerminal,
		Helix:       crosslink.HelicalPosition{Residue: 87, Chain: 1},
		Residues:    [2]crosslink.Residue{crosslink.Hydroxylysine, crosslink.Hydroxylysine},
	},
	{
		Telopeptide: crosslink.NTerminal,
		Helix:       crosslink.HelicalPosition{Residue: 930, Chain: 2},
		Residues:    [2]crosslink.Residue{crosslink.Lysine, crosslink.Lysine},
	},
}

// Sample is one coupled bone sample. It is a single-writer value: Step and
// ApplyLoad must not run concurrently with each other or with Evaluate.
type Sample struct {
	cfg Config

	crystal        *crystal.Crystal
	collagen       *collagen.Collagen
	enzyme         *enzyme.LysylOxidase
	matrix         *matrix.Matrix
	mineralization *matrix.Mineralization
	strength       *strength.Model

	age           time.Duration
	steps         int
	crosslinkBase float64
	attempts      int
	formed        int
}

// StepResult summarizes what happened during one Step.
type StepResult struct {
	Day             float64      `json:"day"`
	MineralChange   float64      `json:"mineral_change"`
	Stage           matrix.Stage `json:"stage"`
	Catalyzed       bool         `json:"catalyzed"`
	CrosslinkFormed bool         `json:"crosslink_formed"`
	Strength        float64      `json:"strength"`
}

// NewSample builds a sample with an activated enzyme and an assembled fibril.
func NewSample(cfg Config) (*Sample, error) {
	const op = "tissue.NewSample"
	cx := crystal.New(crystal.WithFactorPolicy(cfg.Policy))
	col := collagen.New(collagen.WithFactorPolicy(cfg.Policy), collagen.WithMaturationMode(cfg.Maturation))
	lox := enzyme.New(enzyme.WithFactorPolicy(cfg.Policy), enzyme.WithActivationPolicy(cfg.Activation))
	mx := matrix.New(matrix.WithFactorPolicy(cfg.Policy))

	mz, err := matrix.NewMineralization(cfg.MineralizationRate)
	if err != nil {
		return nil, err
	}
	if err := lox.SetExpressionLevel(cfg.EnzymeExpression); err != nil {
		return nil, err
	}
	lox.LoadCopper()
	lox.Activate()

	body := biology.Physiological()
	if !col.AssembleFibril(body.Temperature, body.PH) {
		return nil, biology.SimulationFailure(op, "fibril assembly failed at physiological conditions")
	}

	s := &Sample{
		cfg:            cfg,
		crystal:        cx,
		collagen:       col,
		enzyme:         lox,
		matrix:         mx,
		mineralization: mz,
		strength:       strength.New(strength.WithMatrix(mx), strength.WithFactorPolicy(cfg.Policy)),
		crosslinkBase:  mx.Organization().CrosslinkDensity,
	}
	if err := s.syncOrganization(); err != nil {
		return nil, err
	}
	return s, nil
}

// Step advances the sample by dt under conditions c.
func (s *Sample) Step(dt time.Duration, c biology.Conditions) (StepResult, error) {
	const op = "tissue.Step"
	if dt < 0 {
		return StepResult{}, biology.InvalidParameter(op, "negative step %s", dt)
	}
	if err := c.Validate(); err != nil {
		return StepResult{}, err
	}
	var res StepResult

	change, err := s.mineralization.Progress(biology.Days(dt))
	if err != nil {
		return res, err
	}
	if err := s.matrix.Remodel(change, 0); err != nil {
		return res, err
	}
	res.MineralChange = change
	res.Stage = s.mineralization.Stage()

	res.Catalyzed, res.CrosslinkFormed, err = s.crosslink(c)
	if err != nil {
		return res, err
	}

	if err := s.collagen.Mature(dt); err != nil {
		return res, err
	}
	if err := s.syncOrganization(); err != nil {
		return res, err
	}

	s.age += dt
	s.steps++
	res.Day = biology.Days(s.age)
	res.Strength = s.strength.CalculateStrength()
	if !biology.Finite(res.Strength) {
		return res, biology.SimulationFailure(op, "strength diverged to %v on day %.2f", res.Strength, res.Day)
	}
	return res, nil
}

// crosslink runs one catalysis attempt and, on success, one formation
// attempt at the next telopeptide site.
func (s *Sample) crosslink(c biology.Conditions) (catalyzed, formed bool, err error) {
	if c.Oxygen > 0 {
		s.enzyme.Reoxidize()
	}
	site := crosslinkSites[s.attempts%len(crosslinkSites)]
	s.attempts++

	sub := enzyme.Substrate{Type: enzyme.Lysine, Position: site.Helix.Residue}
	if site.Residues[0] == crosslink.Hydroxylysine {
		sub.Type = enzyme.Hydroxylysine
	}
	catalyzed, err = s.enzyme.Catalyze(sub, c)
	if err != nil || !catalyzed {
		return false, false, err
	}

	f, err := crosslink.NewFormation(s.enzyme.CalculateActivity(c), c, crosslink.FormationConfig{
		Policy:     s.cfg.Policy,
		Maturation: s.cfg.Maturation,
	})
	if err != nil {
		return true, false, err
	}
	x, formed, err := f.Form(site)
	if err != nil || !formed {
		return true, false, err
	}
	if err := s.collagen.AttachCrosslink(x); err != nil {
		return true, false, err
	}
	s.formed++
	return true, true, nil
}

// syncOrganization pushes collagen and crystal state into the matrix and the
// strength model.
func (s *Sample) syncOrganization() error {
	load := s.collagen.CrosslinkLoad()
	saturation := math.Min(1, load/constants.CrosslinkSaturation)
	o := matrix.Organization{
		FibrilAlignment:    s.collagen.PackingDensity(),
		CrystalOrientation: s.crystal.OrientationScore(),
		CrosslinkDensity:   s.crosslinkBase + (1-s.crosslinkBase)*saturation,
	}
	if err := s.matrix.SetOrganization(o.Clamped()); err != nil {
		return err
	}
	return s.strength.SetCrystallinity(biology.Clamp01(s.crystal.Crystallinity()))
}

// ApplyLoad applies a mechanical load to the whole sample. Load-driven gains
// in crosslink density persist across later steps.
func (s *Sample) ApplyLoad(force biology.Vector3, d time.Duration) (biology.Vector3, error) {
	before := s.matrix.Organization().CrosslinkDensity
	strain, err := s.strength.ApplyLoad(force, d)
	if err != nil {
		return strain, err
	}
	if after := s.matrix.Organization().CrosslinkDensity; after != before && before > 0 {
		s.crosslinkBase = biology.Clamp01(s.crosslinkBase * after / before)
	}
	return strain, nil
}

// AddSubstitution forwards an ionic substitution to the crystal and resyncs
// the organization it feeds.
func (s *Sample) AddSubstitution(ion crystal.IonType, site crystal.Site, percent float64) error {
	if err := s.crystal.AddSubstitution(ion, site, percent); err != nil {
		return err
	}
	return s.syncOrganization()
}

func (s *Sample) Config() Config                         { return s.cfg }
func (s *Sample) Age() time.Duration                     { return s.age }
func (s *Sample) Steps() int                             { return s.steps }
func (s *Sample) CrosslinksFormed() int                  { return s.formed }
func (s *Sample) Crystal() *crystal.Crystal              { return s.crystal }
func (s *Sample) Collagen() *collagen.Collagen           { return s.collagen }
func (s *Sample) Enzyme() *enzyme.LysylOxidase           { return s.enzyme }
func (s *Sample) Matrix() *matrix.Matrix                 { return s.matrix }
func (s *Sample) Mineralization() *matrix.Mineralization { return s.mineralization }
func (s *Sample) Strength() *strength.Model              { return s.strength }
