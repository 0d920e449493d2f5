package tissue

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/matrix"
	"github.com/nvandessel/osteon/internal/strength"
)

// Report is a read-only evaluation of a sample.
type Report struct {
	Day               float64             `json:"day"`
	Steps             int                 `json:"steps"`
	Strength          float64             `json:"strength"`
	Breakdown         strength.Breakdown  `json:"breakdown"`
	MatrixStrength    float64             `json:"matrix_strength"`
	Composition       matrix.Composition  `json:"composition"`
	Organization      matrix.Organization `json:"organization"`
	Stage             string              `json:"stage"`
	Crosslinks        int                 `json:"crosslinks"`
	MatureCrosslinks  int                 `json:"mature_crosslinks"`
	CrosslinkLoad     float64             `json:"crosslink_load"`
	CollagenStability float64             `json:"collagen_stability"`
	CrystalStability  float64             `json:"crystal_stability"`
	EnzymeState       string              `json:"enzyme_state"`
	CatalyticEvents   int                 `json:"catalytic_events"`
	Loads             int                 `json:"loads"`
	PeakStrain        float64             `json:"peak_strain"`
	CumulativeStrain  float64             `json:"cumulative_strain"`
}

// Evaluate reports the current state without mutating the sample.
func (s *Sample) Evaluate() Report {
	return Report{
		Day:               biology.Days(s.age),
		Steps:             s.steps,
		Strength:          s.strength.CalculateStrength(),
		Breakdown:         s.strength.Breakdown(),
		MatrixStrength:    s.matrix.CalculateStrength(),
		Composition:       s.matrix.Composition(),
		Organization:      s.matrix.Organization(),
		Stage:             s.mineralization.Stage().String(),
		Crosslinks:        len(s.collagen.Crosslinks()),
		MatureCrosslinks:  s.collagen.MatureCrosslinks(),
		CrosslinkLoad:     bounded(s.collagen.CrosslinkLoad()),
		CollagenStability: bounded(s.collagen.CalculateStability()),
		CrystalStability:  s.crystal.StabilityAt(biology.Physiological()),
		EnzymeState:       s.enzyme.State().String(),
		CatalyticEvents:   len(s.enzyme.History()),
		Loads:             len(s.strength.LoadingHistory()),
		PeakStrain:        s.strength.PeakStrain(),
		CumulativeStrain:  s.strength.CumulativeStrain(),
	}
}

// bounded keeps compounding quantities encodable as JSON.
func bounded(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	case math.IsNaN(v):
		return 0
	}
	return v
}

// EvaluateAll evaluates samples concurrently. Samples must not be mutated
// while it runs.
func EvaluateAll(ctx context.Context, samples []*Sample) ([]Report, error) {
	reports := make([]Report, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	for i, s := range samples {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if s == nil {
				return biology.InvalidParameter("tissue.EvaluateAll", "sample %d is nil", i)
			}
			reports[i] = s.Evaluate()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
