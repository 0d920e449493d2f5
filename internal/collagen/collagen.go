// Package collagen models a type I collagen molecule from its generated
// alpha-chain sequences through triple-helix stability to fibril assembly
// and crosslink-driven mechanical properties.
package collagen

import (
	"fmt"
	"time"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
	"github.com/nvandessel/osteon/internal/crosslink"
)

// ChainCount is the number of alpha chains in a triple helix.
const ChainCount = 3

// AminoAcid is a one-letter residue code.
type AminoAcid byte

const (
	Glycine        AminoAcid = 'G'
	Proline        AminoAcid = 'P'
	Hydroxyproline AminoAcid = 'O'
	Placeholder    AminoAcid = 'X'
)

// ChainType distinguishes the two alpha chain variants.
type ChainType int

const (
	Alpha1 ChainType = iota + 1
	Alpha2
)

func (c ChainType) String() string {
	switch c {
	case Alpha1:
		return "alpha1"
	case Alpha2:
		return "alpha2"
	default:
		return fmt.Sprintf("chain(%d)", int(c))
	}
}

// Chain is one alpha chain.
type Chain struct {
	Type     ChainType
	Sequence []AminoAcid
}

// ModificationType is a post-translational modification.
type ModificationType int

const (
	Hydroxylation ModificationType = iota
	Glycosylation
	Phosphorylation
)

func (m ModificationType) String() string {
	switch m {
	case Hydroxylation:
		return "hydroxylation"
	case Glycosylation:
		return "glycosylation"
	case Phosphorylation:
		return "phosphorylation"
	default:
		return fmt.Sprintf("modification(%d)", int(m))
	}
}

// Modification is a recorded post-translational modification.
type Modification struct {
	Chain    int
	Position int
	Type     ModificationType
}

// Fibril describes the assembled fibril.
type Fibril struct {
	DPeriod  float64 // nm
	Diameter float64 // nm
	Density  float64 // packing density, 0.0-1.0
}

// Mechanics are the fibril's mechanical properties.
type Mechanics struct {
	ElasticModulus  float64 // GPa
	TensileStrength float64 // MPa
	FailureStrain   float64
}

// Collagen is a triple-helical collagen molecule and the fibril it forms.
type Collagen struct {
	chains           [ChainCount]Chain
	modifications    []Modification
	thermalStability float64
	pitch            float64

	fibril     Fibril
	crosslinks []*crosslink.Crosslink
	mechanics  Mechanics
	age        time.Duration

	seqStability float64
	policy       biology.FactorPolicy
	maturation   crosslink.MaturationMode
}

// Option configures a Collagen.
type Option func(*Collagen)

// WithFactorPolicy sets how the assembly temperature factor is bounded.
func WithFactorPolicy(p biology.FactorPolicy) Option {
	return func(c *Collagen) { c.policy = p }
}

// WithMaturationMode sets the maturation mode of crosslinks created by AddCrosslink.
func WithMaturationMode(m crosslink.MaturationMode) Option {
	return func(c *Collagen) { c.maturation = m }
}

// New returns a type I collagen molecule: two alpha1 chains and one alpha2.
func New(opts ...Option) *Collagen {
	alpha1 := GenerateSequence(Alpha1)
	alpha2 := GenerateSequence(Alpha2)
	c := &Collagen{
		chains: [ChainCount]Chain{
			{Type: Alpha1, Sequence: alpha1},
			{Type: Alpha1, Sequence: append([]AminoAcid(nil), alpha1...)},
			{Type: Alpha2, Sequence: alpha2},
		},
		thermalStability: constants.BaseThermalStability,
		pitch:            constants.HelixPitch,
		fibril: Fibril{
			DPeriod:  constants.FibrilDPeriod,
			Diameter: constants.BaseFibrilDiameter,
			Density:  constants.BaseFibrilDensity,
		},
		mechanics: Mechanics{
			ElasticModulus:  constants.BaseCollagenModulus,
			TensileStrength: constants.BaseCollagenStrength,
			FailureStrain:   constants.BaseFailureStrain,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.seqStability = c.sequenceStability()
	return c
}

// GenerateSequence builds the Gly-X-Y repeat for a chain type. Every third
// residue is glycine; alpha1 carries proline at i%3 == 1 and alpha2 at the
// sparser i%6 == 1.
func GenerateSequence(t ChainType) []AminoAcid {
	seq := make([]AminoAcid, constants.CollagenChainLength)
	for i := range seq {
		switch {
		case i%3 == 0:
			seq[i] = Glycine
		case t == Alpha1 && i%3 == 1:
			seq[i] = Proline
		case t != Alpha1 && i%6 == 1:
			seq[i] = Proline
		default:
			seq[i] = Placeholder
		}
	}
	return seq
}

// AddModification records a modification and updates thermal stability.
func (c *Collagen) AddModification(chain, position int, t ModificationType) error {
	const op = "collagen.AddModification"
	if t < Hydroxylation || t > Phosphorylation {
		return biology.InvalidParameter(op, "unknown modification %s", t)
	}
	if err := c.checkPosition(op, chain, position); err != nil {
		return err
	}
	c.modifications = append(c.modifications, Modification{Chain: chain, Position: position, Type: t})
	c.thermalStability = constants.BaseThermalStability * c.CalculateStability() / c.seqStability
	return nil
}

func (c *Collagen) checkPosition(op string, chain, position int) error {
	if chain < 0 || chain >= ChainCount {
		return biology.InvalidInteraction(op, "chain %d outside the triple helix", chain)
	}
	if position < 0 || position >= len(c.chains[chain].Sequence) {
		return biology.InvalidInteraction(op, "residue %d outside chain of length %d", position, len(c.chains[chain].Sequence))
	}
	return nil
}

// AddCrosslink creates a crosslink of type t anchored at residue position of
// the first chain and attaches it.
func (c *Collagen) AddCrosslink(position int, t crosslink.Type) error {
	site := crosslink.Site{
		Telopeptide: crosslink.NTerminal,
		Helix:       crosslink.HelicalPosition{Residue: position, Chain: 0},
		Residues:    [2]crosslink.Residue{crosslink.Lysine, crosslink.Hydroxylysine},
	}
	if err := c.checkPosition("collagen.AddCrosslink", 0, position); err != nil {
		return err
	}
	x, err := crosslink.New(t, site,
		crosslink.WithFactorPolicy(c.policy),
		crosslink.WithMaturationMode(c.maturation))
	if err != nil {
		return err
	}
	return c.AttachCrosslink(x)
}

// AttachCrosslink takes ownership of an already formed crosslink and
// recomputes mechanical properties.
func (c *Collagen) AttachCrosslink(x *crosslink.Crosslink) error {
	const op = "collagen.AttachCrosslink"
	if x == nil {
		return biology.InvalidParameter(op, "nil crosslink")
	}
	h := x.Site().Helix
	if err := c.checkPosition(op, h.Chain, h.Residue); err != nil {
		return err
	}
	c.crosslinks = append(c.crosslinks, x)

	gain := 1 + float64(len(c.crosslinks))*constants.CrosslinkMechanicalGain
	c.mechanics.ElasticModulus = constants.BaseCollagenModulus * gain
	c.mechanics.TensileStrength = constants.BaseCollagenStrength * gain
	return nil
}

// CalculateStability is sequence stability × modification effect ×
// crosslink effect. Neither effect is bounded.
func (c *Collagen) CalculateStability() float64 {
	return c.seqStability * c.modificationEffect() * c.crosslinkEffect()
}

func (c *Collagen) sequenceStability() float64 {
	var total float64
	for _, ch := range c.chains {
		var gly, pro int
		for _, aa := range ch.Sequence {
			switch aa {
			case Glycine:
				gly++
			case Proline, Hydroxyproline:
				pro++
			}
		}
		n := float64(len(ch.Sequence))
		total += (float64(gly) / n) * (float64(pro) / n)
	}
	return total / ChainCount
}

func (c *Collagen) modificationEffect() float64 {
	var n int
	for _, m := range c.modifications {
		if m.Type == Hydroxylation {
			n++
		}
	}
	return 1 + float64(n)*constants.HydroxylationBonus
}

func (c *Collagen) crosslinkEffect() float64 {
	return 1 + float64(c.MatureCrosslinks())*constants.MatureCrosslinkBonus
}

// MatureCrosslinks counts owned crosslinks whose maturity score exceeds the
// mature threshold.
func (c *Collagen) MatureCrosslinks() int {
	var n int
	for _, x := range c.crosslinks {
		if x.MaturityScore() > constants.MatureCrosslinkScore {
			n++
		}
	}
	return n
}

// AssembleFibril attempts fibrillogenesis. It returns false without changing
// state when temperature exceeds thermal stability or pH is outside the
// assembly window.
func (c *Collagen) AssembleFibril(temperature, pH float64) bool {
	if !biology.Finite(temperature) || !biology.Finite(pH) {
		return false
	}
	if temperature > c.thermalStability || pH < constants.MinAssemblyPH || pH > constants.MaxAssemblyPH {
		return false
	}
	c.fibril.Diameter = constants.BaseFibrilDiameter * c.CalculateStability()
	c.fibril.Density = constants.BaseFibrilDensity * c.policy.Deviation(temperature, constants.OptimalTemperature)
	return true
}

// Mature ages every owned crosslink by d.
func (c *Collagen) Mature(d time.Duration) error {
	if d < 0 {
		return biology.InvalidParameter("collagen.Mature", "negative duration %s", d)
	}
	for _, x := range c.crosslinks {
		if err := x.Mature(d); err != nil {
			return err
		}
	}
	c.age += d
	return nil
}

// Advance implements biology.Temporal.
func (c *Collagen) Advance(d time.Duration) error { return c.Mature(d) }

// Age implements biology.Temporal.
func (c *Collagen) Age() time.Duration { return c.age }

// CrosslinkLoad sums the strength contribution of every owned crosslink.
func (c *Collagen) CrosslinkLoad() float64 {
	var total float64
	for _, x := range c.crosslinks {
		total += x.StrengthContribution()
	}
	return total
}

// Crosslinks returns the owned crosslinks. The slice is a copy; the
// crosslinks are not.
func (c *Collagen) Crosslinks() []*crosslink.Crosslink {
	return append([]*crosslink.Crosslink(nil), c.crosslinks...)
}

// Chain returns a copy of chain i.
func (c *Collagen) Chain(i int) (Chain, error) {
	if i < 0 || i >= ChainCount {
		return Chain{}, biology.InvalidParameter("collagen.Chain", "chain %d outside the triple helix", i)
	}
	ch := c.chains[i]
	ch.Sequence = append([]AminoAcid(nil), ch.Sequence...)
	return ch, nil
}

// Modifications returns a copy of the recorded modifications.
func (c *Collagen) Modifications() []Modification {
	return append([]Modification(nil), c.modifications...)
}

// PackingDensity is the fibril packing density.
func (c *Collagen) PackingDensity() float64 { return c.fibril.Density }

func (c *Collagen) ThermalStability() float64 { return c.thermalStability }
func (c *Collagen) Pitch() float64            { return c.pitch }
func (c *Collagen) Fibril() Fibril            { return c.fibril }
func (c *Collagen) Mechanics() Mechanics      { return c.mechanics }
