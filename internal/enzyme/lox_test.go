package enzyme

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/osteon/internal/biology"
)

var fullOxygen = biology.Conditions{PH: 7.4, Temperature: 37, Oxygen: 1.0}

func activeLOX(t *testing.T, opts ...Option) *LysylOxidase {
	t.Helper()
	l := New(opts...)
	require.True(t, l.LoadCopper())
	require.True(t, l.Activate())
	require.Equal(t, Active, l.State())
	return l
}

func TestNewProenzyme(t *testing.T) {
	l := New()
	assert.Equal(t, Proenzyme, l.State())
	assert.Equal(t, Inactive, l.Redox())
	assert.False(t, l.CopperBound())
	assert.Equal(t, Propeptide{Length: 147, CleavageSite: 142, RegulatoryActive: true}, l.Propeptide())
	assert.Equal(t, SquarePlanar, l.Geometry())
	assert.Equal(t, 0.0, l.CalculateActivity(fullOxygen))
}

func TestActivationOrdering(t *testing.T) {
	tests := []struct {
		name        string
		policy      ActivationPolicy
		copperFirst bool
		want        ProcessingState
	}{
		{"retry copper then activate", RetryActivation, true, Active},
		{"retry activate then copper", RetryActivation, false, Active},
		{"legacy copper then activate", LegacyActivation, true, Intermediate},
		{"legacy activate then copper", LegacyActivation, false, Intermediate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(WithActivationPolicy(tt.policy))
			if tt.copperFirst {
				l.LoadCopper()
				l.Activate()
			} else {
				l.Activate()
				l.LoadCopper()
			}
			assert.Equal(t, tt.want, l.State())
			assert.True(t, l.CopperBound())
		})
	}
}

func TestLegacyActivateBeforeCopperStaysIntermediate(t *testing.T) {
	l := New(WithActivationPolicy(LegacyActivation))
	assert.False(t, l.Activate())
	assert.True(t, l.LoadCopper())
	// the cofactor forms but activation is never re-checked
	assert.True(t, l.CofactorFormed())
	assert.Equal(t, Intermediate, l.State())
	assert.False(t, l.Activate())
	assert.Equal(t, Intermediate, l.State())
}

func TestLoadCopperAndActivateAreIdempotent(t *testing.T) {
	l := activeLOX(t)
	assert.False(t, l.LoadCopper())
	assert.False(t, l.Activate())
	assert.Equal(t, Active, l.State())
	assert.Equal(t, Oxidized, l.Redox())
	assert.False(t, l.Propeptide().RegulatoryActive)
}

func TestCalculateActivity(t *testing.T) {
	l := activeLOX(t)
	assert.InDelta(t, 0.5, l.CalculateActivity(fullOxygen), 1e-12)
	assert.InDelta(t, 0.5, l.CalculateActivity(biology.Conditions{PH: 7.4, Temperature: 37, Oxygen: 3}), 1e-12)
	assert.InDelta(t, 0.45, l.CalculateActivity(biology.Physiological()), 1e-12)

	require.NoError(t, l.SetInhibition(Inhibition{Competitive: 0.5, Allosteric: 0.2}))
	assert.InDelta(t, 0.5*0.5*0.8, l.CalculateActivity(fullOxygen), 1e-12)
}

func TestCalculateActivityFactorPolicy(t *testing.T) {
	extreme := biology.Conditions{PH: 7.4, Temperature: 80, Oxygen: 1}

	clamped := activeLOX(t)
	assert.Equal(t, 0.0, clamped.CalculateActivity(extreme))

	raw := activeLOX(t, WithFactorPolicy(biology.RawFactors))
	assert.Less(t, raw.CalculateActivity(extreme), 0.0)
}

func TestCatalyzeThreshold(t *testing.T) {
	l := activeLOX(t)
	s := Substrate{Type: Lysine, Position: 9}

	ok, err := l.Catalyze(s, fullOxygen)
	require.NoError(t, err)
	assert.False(t, ok, "activity of exactly 0.5 does not exceed the threshold")
	assert.Empty(t, l.History())

	require.NoError(t, l.SetExpressionLevel(1.5))
	ok, err = l.Catalyze(s, fullOxygen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Reduced, l.Redox())
	require.Len(t, l.History(), 1)
	assert.InDelta(t, 0.75, l.History()[0].Activity, 1e-12)
}

func TestCatalyzeRecordsClockTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := activeLOX(t, WithClock(func() time.Time { return at }))
	require.NoError(t, l.SetExpressionLevel(2))

	ok, err := l.Catalyze(Substrate{Type: Hydroxylysine}, fullOxygen)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at, l.History()[0].Time)
}

func TestCatalyzeRequiresActiveAndSpecificity(t *testing.T) {
	l := New()
	ok, err := l.Catalyze(Substrate{Type: Lysine}, fullOxygen)
	require.NoError(t, err)
	assert.False(t, ok)

	l = activeLOX(t)
	require.NoError(t, l.SetExpressionLevel(2))
	require.NoError(t, l.SetSpecificity(HydroxylysineOnly))
	ok, err = l.Catalyze(Substrate{Type: Lysine}, fullOxygen)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.Catalyze(Substrate{Type: Hydroxylysine}, fullOxygen)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCatalyzeRejectsMalformedInput(t *testing.T) {
	l := activeLOX(t)
	_, err := l.Catalyze(Substrate{Type: SubstrateType(5)}, fullOxygen)
	assert.True(t, errors.Is(err, biology.ErrInvalidInteraction))

	_, err = l.Catalyze(Substrate{Type: Lysine}, biology.Conditions{PH: -1, Temperature: 37})
	assert.True(t, errors.Is(err, biology.ErrInvalidParameter))
}

func TestReoxidize(t *testing.T) {
	l := activeLOX(t)
	assert.False(t, l.Reoxidize(), "already oxidized")

	require.NoError(t, l.SetExpressionLevel(2))
	ok, err := l.Catalyze(Substrate{Type: Lysine}, fullOxygen)
	require.NoError(t, err)
	require.True(t, ok)

	assert.True(t, l.Reoxidize())
	assert.Equal(t, Oxidized, l.Redox())
}

func TestCatalysisNotGatedOnRedox(t *testing.T) {
	l := activeLOX(t)
	require.NoError(t, l.SetExpressionLevel(2))
	for i := 0; i < 3; i++ {
		ok, err := l.Catalyze(Substrate{Type: Lysine, Position: i}, fullOxygen)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Len(t, l.History(), 3)
}

func TestDegradeIsTerminal(t *testing.T) {
	l := activeLOX(t)
	l.Degrade()
	assert.Equal(t, Degraded, l.State())
	assert.Equal(t, 0.0, l.CalculateActivity(fullOxygen))
	assert.False(t, l.Activate())
	assert.False(t, l.Reoxidize())

	assert.True(t, errors.Is(l.SetExpressionLevel(2), biology.ErrInvalidState))
	assert.True(t, errors.Is(l.SetInhibition(Inhibition{}), biology.ErrInvalidState))
	assert.True(t, errors.Is(l.SetSpecificity(Both), biology.ErrInvalidState))
}

func TestSettersValidate(t *testing.T) {
	l := New()
	assert.True(t, errors.Is(l.SetExpressionLevel(-1), biology.ErrInvalidParameter))
	assert.True(t, errors.Is(l.SetInhibition(Inhibition{Competitive: 1.5}), biology.ErrInvalidParameter))
	assert.True(t, errors.Is(l.SetSpecificity(Specificity(8)), biology.ErrInvalidParameter))
	assert.Equal(t, 1.0, l.ExpressionLevel())
}

func TestParseActivationPolicy(t *testing.T) {
	assert.Equal(t, LegacyActivation, ParseActivationPolicy("legacy"))
	assert.Equal(t, RetryActivation, ParseActivationPolicy("retry"))
}
