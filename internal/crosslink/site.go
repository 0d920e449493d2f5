package crosslink

import (
	"fmt"

	"github.com/nvandessel/osteon/internal/biology"
)

// Telopeptide is the non-helical end region a crosslink anchors in.
type Telopeptide int

const (
	NTerminal Telopeptide = iota
	CTerminal
)

func (t Telopeptide) String() string {
	switch t {
	case NTerminal:
		return "N-terminal"
	case CTerminal:
		return "C-terminal"
	default:
		return fmt.Sprintf("telopeptide(%d)", int(t))
	}
}

// Residue is an amino acid that takes part in a crosslink.
type Residue int

const (
	Lysine Residue = iota
	Hydroxylysine
	AllysineAldehyde
	HydroxyallysineAldehyde
)

func (r Residue) String() string {
	switch r {
	case Lysine:
		return "lysine"
	case Hydroxylysine:
		return "hydroxylysine"
	case AllysineAldehyde:
		return "allysine-aldehyde"
	case HydroxyallysineAldehyde:
		return "hydroxyallysine-aldehyde"
	default:
		return fmt.Sprintf("residue(%d)", int(r))
	}
}

// HelicalPosition locates the partner residue in the triple helix.
type HelicalPosition struct {
	Residue int
	Chain   int
}

// Site is where a crosslink sits on the collagen molecule.
type Site struct {
	Telopeptide Telopeptide
	Helix       HelicalPosition
	Residues    [2]Residue
}

// Validate rejects unknown enum values and negative positions.
func (s Site) Validate() error {
	const op = "crosslink.Site"
	if s.Telopeptide != NTerminal && s.Telopeptide != CTerminal {
		return biology.InvalidParameter(op, "unknown telopeptide %s", s.Telopeptide)
	}
	if s.Helix.Residue < 0 || s.Helix.Chain < 0 {
		return biology.InvalidParameter(op, "negative helical position %+v", s.Helix)
	}
	for _, r := range s.Residues {
		if r < Lysine || r > HydroxyallysineAldehyde {
			return biology.InvalidParameter(op, "unknown residue %s", r)
		}
	}
	return nil
}
