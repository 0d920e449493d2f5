// Package store persists finished simulation runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/osteon/internal/tissue"
)

// ErrNotFound is returned when a run ID is unknown.
var ErrNotFound = errors.New("run not found")

// timeFormat is the fixed-width UTC layout used for text timestamps, so
// lexical and chronological order agree.
const timeFormat = "2006-01-02T15:04:05.000000Z"

// Snapshot is the state of a sample after one step.
type Snapshot struct {
	Day              float64 `json:"day"`
	Strength         float64 `json:"strength"`
	Mineral          float64 `json:"mineral"`
	CrosslinkDensity float64 `json:"crosslink_density"`
	MatrixStrength   float64 `json:"matrix_strength"`
	Crosslinks       int     `json:"crosslinks"`
	Stage            string  `json:"stage"`
}

// Run is one finished simulation of a scenario replicate.
type Run struct {
	ID            string        `json:"id"`
	Scenario      string        `json:"scenario"`
	Replicate     int           `json:"replicate"`
	CreatedAt     time.Time     `json:"created_at"`
	Config        tissue.Config `json:"config"`
	Days          float64       `json:"days"`
	Steps         int           `json:"steps"`
	FinalStrength float64       `json:"final_strength"`
	Report        tissue.Report `json:"report"`
	Snapshots     []Snapshot    `json:"snapshots,omitempty"`
}

// RunStore is the interface every run backend implements.
type RunStore interface {
	// SaveRun persists a run, assigning an ID and creation time when unset.
	// Saving an existing ID replaces the stored run.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun returns the run with its snapshots, or ErrNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs newest first without their snapshots.
	// A limit <= 0 returns every run.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Close releases any resources held by the store.
	Close() error
}

// prepare fills in the ID and creation time. Times are truncated to
// microseconds so every backend round-trips them exactly.
func prepare(run *Run) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Microsecond)
}
