// Package pathutil confines run archive paths named on the command line to
// the directories osteon keeps backups in.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/osteon/internal/backup"
)

var (
	// ErrNotArchive means the path cannot name a run archive file.
	ErrNotArchive = errors.New("not a run archive")

	// ErrOutsideRoots means the path resolves outside every archive root.
	ErrOutsideRoots = errors.New("outside archive directories")
)

// ArchiveRoots returns the directories run archives may be written to or
// restored from: the data directory's backup folder and the working
// directory.
func ArchiveRoots(dataDir string) []string {
	roots := []string{backup.DefaultDir(dataDir)}
	if wd, err := os.Getwd(); err == nil {
		roots = append(roots, wd)
	}
	return roots
}

// CheckArchive returns the absolute, symlink-resolved form of path when it
// names a run archive file strictly inside one of roots. Neither the file
// nor its parent directories need to exist yet.
func CheckArchive(path string, roots []string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: path is empty", ErrNotArchive)
	}
	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: path contains a null byte", ErrNotArchive)
	}
	if len(roots) == 0 {
		return "", fmt.Errorf("%w: none configured", ErrOutsideRoots)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %s: %w", RedactPath(path), err)
	}
	base := filepath.Base(abs)
	if !strings.HasSuffix(base, backup.ArchiveSuffix) || base == backup.ArchiveSuffix {
		return "", fmt.Errorf("%w: %s does not end in %s", ErrNotArchive, RedactPath(abs), backup.ArchiveSuffix)
	}

	resolved, err := resolve(abs)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(resolved); err == nil && !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrNotArchive, RedactPath(abs))
	}

	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		rootResolved, err := resolve(rootAbs)
		if err != nil {
			continue
		}
		if within(resolved, rootResolved) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideRoots, RedactPath(abs))
}

// resolve evaluates symlinks along path. The missing tail of a path that
// does not exist yet is kept as written.
func resolve(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}
	parent := filepath.Dir(path)
	if parent == path {
		return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
	}
	resolvedParent, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}

// within reports whether path lies below root. root itself is not within.
func within(path, root string) bool {
	return strings.HasPrefix(path, strings.TrimSuffix(root, string(os.PathSeparator))+string(os.PathSeparator))
}

// RedactPath shortens a path to .../<parent>/<base> for logs and errors.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}
