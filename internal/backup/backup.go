// Package backup archives the run store to a checksummed file and restores
// runs from one.
package backup

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nvandessel/osteon/internal/store"
)

// RestoreMode controls how restored runs interact with stored ones.
type RestoreMode string

const (
	// RestoreMerge skips runs whose ID is already stored (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreOverwrite replaces stored runs that share an ID.
	RestoreOverwrite RestoreMode = "overwrite"
)

// ParseRestoreMode maps a flag value to a mode.
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(s) {
	case "", RestoreMerge:
		return RestoreMerge, nil
	case RestoreOverwrite:
		return RestoreOverwrite, nil
	default:
		return "", fmt.Errorf("unknown restore mode %q (want merge or overwrite)", s)
	}
}

// RestoreResult counts what a restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// Backup writes every stored run, snapshots included, to path.
func Backup(ctx context.Context, runs store.RunStore, path string) (*Header, error) {
	listed, err := runs.ListRuns(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	a := &Archive{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Runs:      make([]store.Run, 0, len(listed)),
	}
	for _, r := range listed {
		full, err := runs.GetRun(ctx, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load run %s: %w", r.ID, err)
		}
		a.Runs = append(a.Runs, *full)
	}
	return Write(path, a)
}

// Restore saves the archived runs at path into runs.
func Restore(ctx context.Context, runs store.RunStore, path string, mode RestoreMode) (*RestoreResult, error) {
	a, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for i := range a.Runs {
		run := &a.Runs[i]
		if mode != RestoreOverwrite {
			_, err := runs.GetRun(ctx, run.ID)
			if err == nil {
				result.Skipped++
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return result, fmt.Errorf("failed to check run %s: %w", run.ID, err)
			}
		}
		if err := runs.SaveRun(ctx, run); err != nil {
			return result, fmt.Errorf("failed to restore run %s: %w", run.ID, err)
		}
		result.Restored++
	}
	return result, nil
}

// DefaultDir returns the backup directory under the data directory.
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, "backups")
}

// GeneratePath creates a timestamped archive name in dir.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, "osteon-runs-"+now.UTC().Format("20060102-150405")+ArchiveSuffix)
}
