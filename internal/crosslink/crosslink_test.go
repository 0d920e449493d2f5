package crosslink

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/osteon/internal/biology"
)

const day = 24 * time.Hour

func testSite() Site {
	return Site{
		Telopeptide: NTerminal,
		Helix:       HelicalPosition{Residue: 87, Chain: 1},
		Residues:    [2]Residue{Lysine, Hydroxylysine},
	}
}

func mustNew(t *testing.T, typ Type, opts ...Option) *Crosslink {
	t.Helper()
	c, err := New(typ, testSite(), opts...)
	require.NoError(t, err)
	return c
}

func TestNewInitialProperties(t *testing.T) {
	tests := []struct {
		typ       Type
		strength  float64
		stability float64
	}{
		{DHLNL, 1.0, 0.7},
		{HLNL, 1.0, 0.7},
		{Pyridinoline, 2.0, 0.9},
		{Deoxypyridinoline, 2.0, 0.9},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			c := mustNew(t, tt.typ)
			assert.Equal(t, Immature, c.Maturity())
			assert.Equal(t, tt.strength, c.Strength())
			assert.Equal(t, tt.stability, c.Stability())
			assert.Equal(t, 1.0, c.MechanicalEffect())
			assert.Equal(t, tt.strength, c.StrengthContribution())
		})
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(Type(9), testSite())
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))

	bad := testSite()
	bad.Helix.Chain = -1
	_, err = New(DHLNL, bad)
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))
}

func TestMatureReachesMatureAfterThirtyOneDays(t *testing.T) {
	c := mustNew(t, DHLNL)
	require.NoError(t, c.Mature(31*day))
	assert.Equal(t, Mature, c.Maturity())
	assert.Equal(t, 1.0, c.MaturityScore())
	assert.Equal(t, 31*day, c.Age())
}

func TestMaturityThresholds(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want MaturityState
	}{
		{0, Immature},
		{7*day - time.Second, Immature},
		{7 * day, Intermediate},
		{30*day - time.Second, Intermediate},
		{30 * day, Mature},
	}
	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			c := mustNew(t, HLNL)
			require.NoError(t, c.Mature(tt.age))
			assert.Equal(t, tt.want, c.Maturity())
		})
	}
}

func TestMaturityNeverRegresses(t *testing.T) {
	c := mustNew(t, DHLNL)
	prev := c.Maturity()
	for i := 0; i < 40; i++ {
		require.NoError(t, c.Mature(day))
		assert.GreaterOrEqual(t, c.Maturity(), prev)
		prev = c.Maturity()
	}
	assert.Error(t, c.Mature(-time.Hour))
	assert.Equal(t, Mature, c.Maturity())
}

func TestCompoundingMaturationDependsOnStepSize(t *testing.T) {
	one := mustNew(t, DHLNL)
	require.NoError(t, one.Mature(10*day))

	many := mustNew(t, DHLNL)
	for i := 0; i < 10; i++ {
		require.NoError(t, many.Mature(day))
	}

	// one call applies 1.5 once; ten calls apply 1.5 on days 7..10
	assert.InDelta(t, 1.5, one.Strength(), 1e-12)
	assert.InDelta(t, 1.5*1.5*1.5*1.5, many.Strength(), 1e-12)
	assert.Greater(t, many.StrengthContribution(), one.StrengthContribution())
}

func TestFromBaseMaturationIsPathIndependent(t *testing.T) {
	one := mustNew(t, DHLNL, WithMaturationMode(FromBase))
	require.NoError(t, one.Mature(40*day))

	many := mustNew(t, DHLNL, WithMaturationMode(FromBase))
	for i := 0; i < 40; i++ {
		require.NoError(t, many.Mature(day))
	}

	assert.Equal(t, one.Strength(), many.Strength())
	assert.Equal(t, one.Stability(), many.Stability())
	assert.InDelta(t, 2.0*2.0, one.StrengthContribution(), 1e-12)
}

func TestIsStable(t *testing.T) {
	c := mustNew(t, Pyridinoline)
	assert.True(t, c.IsStable(7.4, 37.0))
	assert.False(t, c.IsStable(4.0, 60.0))
}

func TestFormationThreshold(t *testing.T) {
	f, err := NewFormation(1.0, biology.Conditions{PH: 7.4, Temperature: 37, Oxygen: 0.9}, FormationConfig{})
	require.NoError(t, err)
	assert.InDelta(t, 0.9, f.Rate(), 1e-12)

	c, ok, err := f.Form(testSite())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, DHLNL, c.Type())

	low, err := NewFormation(1.0, biology.Conditions{PH: 7.4, Temperature: 37, Oxygen: 0.1}, FormationConfig{})
	require.NoError(t, err)
	c, ok, err = low.Form(testSite())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, c)
}

func TestFormationSelectsHLNLAtModerateOxygen(t *testing.T) {
	f, err := NewFormation(1.0, biology.Conditions{PH: 7.4, Temperature: 37, Oxygen: 0.7}, FormationConfig{})
	require.NoError(t, err)
	c, ok, err := f.Form(testSite())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, HLNL, c.Type())
}

func TestFormationUpdateConditions(t *testing.T) {
	f, err := NewFormation(1.0, biology.Physiological(), FormationConfig{Maturation: FromBase})
	require.NoError(t, err)
	before := f.Rate()

	require.NoError(t, f.UpdateConditions(biology.Conditions{PH: 6.0, Temperature: 37, Oxygen: 0.9}))
	assert.Less(t, f.Rate(), before)

	err = f.UpdateConditions(biology.Conditions{PH: 20, Temperature: 37, Oxygen: 0.9})
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))
	assert.Equal(t, 6.0, f.Conditions().PH)
}

func TestNewFormationRejectsNegativeActivity(t *testing.T) {
	_, err := NewFormation(-1, biology.Physiological(), FormationConfig{})
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))
}

func TestParseMaturationMode(t *testing.T) {
	assert.Equal(t, FromBase, ParseMaturationMode("from-base"))
	assert.Equal(t, Compounding, ParseMaturationMode("compounding"))
	assert.Equal(t, Compounding, ParseMaturationMode(""))
}
