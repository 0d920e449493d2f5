package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
)

func setupTestServer(t *testing.T) (*Server, store.RunStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	runs := store.NewInMemoryRunStore()

	server, err := NewServer(&Config{
		Name:      "test-server",
		Version:   "v1.0.0",
		Simulator: simulation.NewRunner(simulation.WithStore(runs)),
		Runs:      runs,
		AuditDir:  tmpDir,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return server, runs, tmpDir
}

func TestNewServer(t *testing.T) {
	server, _, tmpDir := setupTestServer(t)

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.runs == nil {
		t.Error("Server.runs is nil")
	}
	if server.auditLogger == nil {
		t.Error("Server.auditLogger is nil")
	}
	if _, err := os.Stat(filepath.Join(tmpDir, AuditFile)); err != nil {
		t.Errorf("audit log was not created: %v", err)
	}
}

func TestNewServer_RequiresSimulator(t *testing.T) {
	if _, err := NewServer(&Config{Name: "x"}); err == nil {
		t.Error("expected error without a simulator")
	}
	if _, err := NewServer(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestNewServer_WithoutAudit(t *testing.T) {
	server, err := NewServer(&Config{Name: "x", Simulator: simulation.NewRunner()})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if server.auditLogger != nil {
		t.Error("audit logger should be disabled without AuditDir")
	}
	// Tools still work with a nil audit logger.
	if _, _, err := server.handleBoneStrength(context.Background(), nil, BoneStrengthInput{}); err != nil {
		t.Errorf("handleBoneStrength failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	server, _, _ := setupTestServer(t)

	if err := server.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	// Multiple closes should be safe
	if err := server.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestNewServer_HasRateLimiters(t *testing.T) {
	server, _, _ := setupTestServer(t)

	for _, op := range []ratelimit.Op{ratelimit.OpStrength, ratelimit.OpSimulate, ratelimit.OpRuns} {
		if server.limits[op] == nil {
			t.Errorf("missing rate limiter for %s", op)
		}
	}
}
