package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSSink writes objects as files under a root directory.
type FSSink struct {
	root string
}

// NewFSSink returns a sink rooted at root, creating it if needed.
func NewFSSink(root string) (*FSSink, error) {
	if root == "" {
		return nil, fmt.Errorf("export directory required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSSink{root: root}, nil
}

func (s *FSSink) Driver() string { return "fs" }

// Root returns the sink directory.
func (s *FSSink) Root() string { return s.root }

// Put writes data to root/key through a temp file and rename.
func (s *FSSink) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.pathFor(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".export-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), p)
}

// pathFor maps key below root and forbids traversal and absolute keys.
func (s *FSSink) pathFor(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("empty key")
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid key contains '..'")
	}
	if strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid absolute key")
	}
	return filepath.Join(s.root, filepath.Clean(filepath.FromSlash(key))), nil
}
