package simulation

import (
	"math"
	"testing"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/store"
)

// AssertStrengthBounded asserts that strength stays finite and non-negative
// in every snapshot.
func AssertStrengthBounded(t *testing.T, run *store.Run) {
	t.Helper()
	for i, s := range run.Snapshots {
		if !biology.Finite(s.Strength) || s.Strength < 0 {
			t.Errorf("AssertStrengthBounded: step %d (day %.2f): strength %v", i, s.Day, s.Strength)
		}
	}
}

// AssertCrosslinksMonotonic asserts that the crosslink count never drops.
func AssertCrosslinksMonotonic(t *testing.T, run *store.Run) {
	t.Helper()
	for i := 1; i < len(run.Snapshots); i++ {
		prev, cur := run.Snapshots[i-1], run.Snapshots[i]
		if cur.Crosslinks < prev.Crosslinks {
			t.Errorf("AssertCrosslinksMonotonic: step %d: crosslinks fell from %d to %d", i, prev.Crosslinks, cur.Crosslinks)
		}
	}
}

// AssertMineralNonDecreasing asserts that mineralization never removes mineral.
func AssertMineralNonDecreasing(t *testing.T, run *store.Run) {
	t.Helper()
	for i := 1; i < len(run.Snapshots); i++ {
		prev, cur := run.Snapshots[i-1], run.Snapshots[i]
		if cur.Mineral < prev.Mineral-1e-9 {
			t.Errorf("AssertMineralNonDecreasing: step %d: mineral fell from %.6f to %.6f", i, prev.Mineral, cur.Mineral)
		}
	}
}

// AssertCompositionConserved asserts that the final composition sums to 100%.
func AssertCompositionConserved(t *testing.T, run *store.Run) {
	t.Helper()
	if sum := run.Report.Composition.Sum(); math.Abs(sum-100) > 1e-6 {
		t.Errorf("AssertCompositionConserved: composition sums to %.9f", sum)
	}
}

// AssertStageReached asserts that the mineralization stage is stage by the
// end of the run.
func AssertStageReached(t *testing.T, run *store.Run, stage string) {
	t.Helper()
	if run.Report.Stage != stage {
		t.Errorf("AssertStageReached: final stage %q, want %q", run.Report.Stage, stage)
	}
}

// AssertCrosslinksBetween asserts the final crosslink count is in [min, max].
func AssertCrosslinksBetween(t *testing.T, run *store.Run, min, max int) {
	t.Helper()
	if n := run.Report.Crosslinks; n < min || n > max {
		t.Errorf("AssertCrosslinksBetween: %d crosslinks not in [%d, %d]", n, min, max)
	}
}

// AssertStrongerThan asserts that run finished with higher strength than other.
func AssertStrongerThan(t *testing.T, run, other *store.Run) {
	t.Helper()
	if run.FinalStrength <= other.FinalStrength {
		t.Errorf("AssertStrongerThan: %s strength %.6f not above %s strength %.6f",
			run.Scenario, run.FinalStrength, other.Scenario, other.FinalStrength)
	}
}
