package collagen

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/crosslink"
)

const day = 24 * time.Hour

func TestNewCollagen(t *testing.T) {
	c := New()
	for i := 0; i < ChainCount; i++ {
		ch, err := c.Chain(i)
		require.NoError(t, err)
		assert.Len(t, ch.Sequence, 1050)
	}
	ch, _ := c.Chain(2)
	assert.Equal(t, Alpha2, ch.Type)
	assert.Equal(t, 37.0, c.ThermalStability())
	assert.Equal(t, Fibril{DPeriod: 67, Diameter: 50, Density: 0.8}, c.Fibril())
}

func TestGenerateSequence(t *testing.T) {
	a1 := GenerateSequence(Alpha1)
	a2 := GenerateSequence(Alpha2)

	tests := []struct {
		i      int
		alpha1 AminoAcid
		alpha2 AminoAcid
	}{
		{0, Glycine, Glycine},
		{1, Proline, Proline},
		{2, Placeholder, Placeholder},
		{3, Glycine, Glycine},
		{4, Proline, Placeholder},
		{7, Proline, Proline},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.alpha1, a1[tt.i], "alpha1[%d]", tt.i)
		assert.Equal(t, tt.alpha2, a2[tt.i], "alpha2[%d]", tt.i)
	}
}

func TestSequenceStability(t *testing.T) {
	c := New()
	// (1/9 + 1/9 + 1/18) / 3
	assert.InDelta(t, 5.0/54.0, c.CalculateStability(), 1e-12)
}

func TestHydroxylationRaisesStability(t *testing.T) {
	c := New()
	before := c.CalculateStability()

	require.NoError(t, c.AddModification(0, 10, Hydroxylation))
	assert.Greater(t, c.CalculateStability(), before)
	assert.InDelta(t, 37*1.1, c.ThermalStability(), 1e-9)

	require.NoError(t, c.AddModification(1, 11, Glycosylation))
	assert.InDelta(t, before*1.1, c.CalculateStability(), 1e-12)
	assert.Len(t, c.Modifications(), 2)
}

func TestAddModificationRejectsOutOfRange(t *testing.T) {
	c := New()
	err := c.AddModification(3, 0, Hydroxylation)
	assert.True(t, errors.Is(err, biology.ErrInvalidInteraction))
	err = c.AddModification(0, 1050, Hydroxylation)
	assert.True(t, errors.Is(err, biology.ErrInvalidInteraction))
	err = c.AddModification(0, 0, ModificationType(7))
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))
	assert.Empty(t, c.Modifications())
}

func TestAssembleFibril(t *testing.T) {
	c := New()
	assert.True(t, c.AssembleFibril(37.0, 7.4))
	assert.InDelta(t, 50*5.0/54.0, c.Fibril().Diameter, 1e-9)
	assert.InDelta(t, 0.8, c.PackingDensity(), 1e-12)

	before := c.Fibril()
	assert.False(t, c.AssembleFibril(50.0, 7.4))
	assert.False(t, c.AssembleFibril(37.0, 5.9))
	assert.False(t, c.AssembleFibril(37.0, 8.6))
	assert.Equal(t, before, c.Fibril())
}

func TestCrosslinksRaiseMechanics(t *testing.T) {
	c := New()
	require.NoError(t, c.AddCrosslink(87, crosslink.DHLNL))
	require.NoError(t, c.AddCrosslink(930, crosslink.Pyridinoline))

	m := c.Mechanics()
	assert.InDelta(t, 1.2*1.2, m.ElasticModulus, 1e-12)
	assert.InDelta(t, 120*1.2, m.TensileStrength, 1e-9)
	assert.Equal(t, 0.13, m.FailureStrain)
	assert.Len(t, c.Crosslinks(), 2)
}

func TestAttachCrosslinkValidatesSite(t *testing.T) {
	c := New()
	x, err := crosslink.New(crosslink.HLNL, crosslink.Site{Helix: crosslink.HelicalPosition{Residue: 5, Chain: 4}})
	require.NoError(t, err)

	err = c.AttachCrosslink(x)
	assert.True(t, errors.Is(err, biology.ErrInvalidInteraction))
	assert.True(t, errors.Is(c.AttachCrosslink(nil), biology.ErrInvalidParameter))
	assert.Empty(t, c.Crosslinks())
}

func TestMatureCrosslinksRaiseStability(t *testing.T) {
	c := New()
	require.NoError(t, c.AddCrosslink(87, crosslink.DHLNL))
	before := c.CalculateStability()
	loadBefore := c.CrosslinkLoad()

	require.NoError(t, c.Mature(20*day))
	assert.Equal(t, 0, c.MatureCrosslinks())

	require.NoError(t, c.Mature(10*day))
	assert.Equal(t, 1, c.MatureCrosslinks())
	assert.InDelta(t, before*1.2, c.CalculateStability(), 1e-12)
	assert.Greater(t, c.CrosslinkLoad(), loadBefore)
	assert.Equal(t, 30*day, c.Age())

	assert.Error(t, c.Mature(-day))
}
