package matrix

import (
	"fmt"

	"github.com/nvandessel/osteon/internal/biology"
	"github.com/nvandessel/osteon/internal/constants"
)

// Stage is a mineralization stage.
type Stage int

const (
	Primary Stage = iota
	Secondary
	Mature
)

func (s Stage) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Mature:
		return "mature"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

func (s Stage) rateFactor() float64 {
	switch s {
	case Secondary:
		return constants.SecondaryRateFactor
	case Mature:
		return constants.MatureRateFactor
	default:
		return constants.PrimaryRateFactor
	}
}

// Mineralization tracks staged mineral deposition over elapsed days.
type Mineralization struct {
	stage   Stage
	elapsed float64
	rate    float64
}

// NewMineralization starts a primary-stage process depositing rate percent
// mineral per day.
func NewMineralization(rate float64) (*Mineralization, error) {
	if !biology.Finite(rate) || rate < 0 {
		return nil, biology.InvalidParameter("matrix.NewMineralization", "rate %v must be finite and non-negative", rate)
	}
	return &Mineralization{stage: Primary, rate: rate}, nil
}

// Progress advances by days and returns the mineral change deposited at the
// stage the process was in when the call began. A stage advances at most one
// step per call.
func (m *Mineralization) Progress(days float64) (float64, error) {
	if !biology.Finite(days) || days < 0 {
		return 0, biology.InvalidParameter("matrix.Mineralization.Progress", "days %v must be finite and non-negative", days)
	}
	m.elapsed += days
	change := m.rate * days * m.stage.rateFactor()

	switch m.stage {
	case Primary:
		if m.elapsed > constants.PrimaryStageDays {
			m.stage = Secondary
		}
	case Secondary:
		if m.elapsed > constants.SecondaryStageDays {
			m.stage = Mature
		}
	}
	return change, nil
}

func (m *Mineralization) Stage() Stage     { return m.stage }
func (m *Mineralization) Elapsed() float64 { return m.elapsed }
func (m *Mineralization) Rate() float64    { return m.rate }
