package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

func ptr(v float64) *float64 { return &v }

func TestHandleBoneStrength(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	_, fresh, err := server.handleBoneStrength(ctx, nil, BoneStrengthInput{})
	if err != nil {
		t.Fatalf("handleBoneStrength failed: %v", err)
	}
	if fresh.Strength <= 0 {
		t.Errorf("Strength = %f, want > 0", fresh.Strength)
	}
	if fresh.Report.Steps != 0 {
		t.Errorf("Steps = %d, want 0 for a fresh sample", fresh.Report.Steps)
	}

	_, aged, err := server.handleBoneStrength(ctx, nil, BoneStrengthInput{Days: 5, Oxygen: ptr(1)})
	if err != nil {
		t.Fatalf("handleBoneStrength failed: %v", err)
	}
	if aged.Report.Crosslinks != 5 {
		t.Errorf("Crosslinks = %d, want 5", aged.Report.Crosslinks)
	}
	if !strings.Contains(aged.Summary, "5 crosslinks") {
		t.Errorf("Summary = %q, want crosslink count", aged.Summary)
	}
}

func TestHandleBoneStrength_InvalidEnvironment(t *testing.T) {
	server, _, _ := setupTestServer(t)

	_, _, err := server.handleBoneStrength(context.Background(), nil, BoneStrengthInput{PH: ptr(20)})
	if err == nil {
		t.Fatal("expected error for pH 20")
	}
}

func TestHandleBoneSimulate_Builtin(t *testing.T) {
	server, runs, _ := setupTestServer(t)
	ctx := context.Background()

	_, out, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Scenario: "fluorosis", Replicates: 2})
	if err != nil {
		t.Fatalf("handleBoneSimulate failed: %v", err)
	}
	if out.Count != 2 || len(out.Runs) != 2 {
		t.Fatalf("Count = %d, runs = %d, want 2", out.Count, len(out.Runs))
	}
	for i, r := range out.Runs {
		if r.Replicate != i {
			t.Errorf("run %d: Replicate = %d", i, r.Replicate)
		}
		if r.Steps != 30 {
			t.Errorf("run %d: Steps = %d, want 30", i, r.Steps)
		}
		if _, err := runs.GetRun(ctx, r.ID); err != nil {
			t.Errorf("run %d not stored: %v", i, err)
		}
	}
	if !strings.Contains(out.Message, "fluorosis") {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestHandleBoneSimulate_Definition(t *testing.T) {
	server, _, _ := setupTestServer(t)

	def := "name: inline\ndays: 3\nenvironment:\n  oxygen: 0\n"
	_, out, err := server.handleBoneSimulate(context.Background(), nil, BoneSimulateInput{Definition: def})
	if err != nil {
		t.Fatalf("handleBoneSimulate failed: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("Count = %d, want 1", out.Count)
	}
	if out.Runs[0].Scenario != "inline" || out.Runs[0].Crosslinks != 0 {
		t.Errorf("run = %+v, want inline scenario without crosslinks", out.Runs[0])
	}
}

func TestHandleBoneSimulate_InvalidInput(t *testing.T) {
	server, _, _ := setupTestServer(t)

	tests := []struct {
		name string
		args BoneSimulateInput
	}{
		{"nothing", BoneSimulateInput{}},
		{"both", BoneSimulateInput{Scenario: "baseline", Definition: "name: x\ndays: 1\n"}},
		{"unknown builtin", BoneSimulateInput{Scenario: "nope"}},
		{"bad yaml", BoneSimulateInput{Definition: "name: [x"}},
		{"negative replicates", BoneSimulateInput{Scenario: "baseline", Replicates: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := server.handleBoneSimulate(context.Background(), nil, tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestHandleBoneSimulate_ChargesSteps(t *testing.T) {
	server, _, _ := setupTestServer(t)
	// Room for 100 sample steps, never refilled.
	server.limits = ratelimit.Limits{
		ratelimit.OpSimulate: ratelimit.NewLimiter(ratelimit.Budget{Burst: 100}),
	}
	ctx := context.Background()

	// 30 days x 2 replicates leaves 40 steps.
	if _, _, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Scenario: "fluorosis", Replicates: 2}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_, _, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Scenario: "fluorosis", Replicates: 2})
	if !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Fatalf("second call error = %v, want ErrRateLimited", err)
	}
	var le *ratelimit.LimitError
	if !errors.As(err, &le) || le.Cost != 60 {
		t.Errorf("error = %v, want a 60 step LimitError", err)
	}

	// A single 30 day replicate fits in what is left.
	if _, _, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Definition: "name: short\ndays: 30\n"}); err != nil {
		t.Errorf("30 step call failed: %v", err)
	}
}

func TestHandleBoneSimulate_OverBudget(t *testing.T) {
	server, runs, _ := setupTestServer(t)
	ctx := context.Background()

	// 100000 daily steps x 64 replicates is more than a full bucket.
	def := "name: huge\ndays: 100000\nreplicates: 64\n"
	_, _, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Definition: def})
	if !errors.Is(err, ratelimit.ErrOverBudget) {
		t.Fatalf("error = %v, want ErrOverBudget", err)
	}
	stored, _ := runs.ListRuns(ctx, 10)
	if len(stored) != 0 {
		t.Errorf("stored %d runs for a rejected call", len(stored))
	}
}

func TestHandleBoneSimulate_RejectsUnboundedReplicates(t *testing.T) {
	server, _, _ := setupTestServer(t)

	_, _, err := server.handleBoneSimulate(context.Background(), nil, BoneSimulateInput{Scenario: "baseline", Replicates: 1 << 40})
	if err == nil {
		t.Fatal("expected error for 1<<40 replicates")
	}
	if errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("error = %v, want a validation error rather than a rate limit", err)
	}
}

func TestHandleBoneStrength_ChargesSteps(t *testing.T) {
	server, _, _ := setupTestServer(t)
	server.limits = ratelimit.Limits{
		ratelimit.OpStrength: ratelimit.NewLimiter(ratelimit.Budget{Burst: 10}),
	}
	ctx := context.Background()

	if _, _, err := server.handleBoneStrength(ctx, nil, BoneStrengthInput{Days: 8}); err != nil {
		t.Fatalf("8 day estimate failed: %v", err)
	}
	if _, _, err := server.handleBoneStrength(ctx, nil, BoneStrengthInput{Days: 8}); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("second estimate error = %v, want ErrRateLimited", err)
	}
	// A fresh sample costs one step.
	if _, _, err := server.handleBoneStrength(ctx, nil, BoneStrengthInput{}); err != nil {
		t.Errorf("fresh estimate failed: %v", err)
	}
}

func TestHandleBoneRuns_RateLimited(t *testing.T) {
	server, _, _ := setupTestServer(t)
	server.limits = ratelimit.Limits{
		ratelimit.OpRuns: ratelimit.NewLimiter(ratelimit.Budget{Burst: 1}),
	}

	if _, _, err := server.handleBoneRuns(context.Background(), nil, BoneRunsInput{}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, _, err := server.handleBoneRuns(context.Background(), nil, BoneRunsInput{}); !errors.Is(err, ratelimit.ErrRateLimited) {
		t.Errorf("second call error = %v, want ErrRateLimited", err)
	}
}

func TestHandleBoneRuns(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	_, empty, err := server.handleBoneRuns(ctx, nil, BoneRunsInput{})
	if err != nil {
		t.Fatalf("handleBoneRuns failed: %v", err)
	}
	if empty.Count != 0 {
		t.Errorf("Count = %d, want 0", empty.Count)
	}

	_, sim, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Definition: "name: listed\ndays: 4\nreplicates: 3\n"})
	if err != nil {
		t.Fatalf("handleBoneSimulate failed: %v", err)
	}

	_, listed, err := server.handleBoneRuns(ctx, nil, BoneRunsInput{Limit: 2})
	if err != nil {
		t.Fatalf("handleBoneRuns failed: %v", err)
	}
	if listed.Count != 2 {
		t.Errorf("Count = %d, want 2", listed.Count)
	}

	id := sim.Runs[0].ID
	_, shown, err := server.handleBoneRuns(ctx, nil, BoneRunsInput{ID: id})
	if err != nil {
		t.Fatalf("handleBoneRuns(id) failed: %v", err)
	}
	if shown.Run == nil || shown.Run.Summary.ID != id {
		t.Fatalf("Run = %+v, want %s", shown.Run, id)
	}
	if len(shown.Run.Snapshots) != 4 {
		t.Errorf("Snapshots = %d, want 4", len(shown.Run.Snapshots))
	}

	_, _, err = server.handleBoneRuns(ctx, nil, BoneRunsInput{ID: "missing"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestHandleBoneRuns_NoStore(t *testing.T) {
	server, err := NewServer(&Config{Name: "x", Simulator: &stubSimulator{}})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	if _, _, err := server.handleBoneRuns(context.Background(), nil, BoneRunsInput{}); err == nil {
		t.Error("expected error without a run store")
	}
}

func TestScenariosResource(t *testing.T) {
	server, _, _ := setupTestServer(t)

	result, err := server.handleScenariosResource(context.Background(), &sdk.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleScenariosResource failed: %v", err)
	}
	if len(result.Contents) != 1 {
		t.Fatalf("Contents = %d, want 1", len(result.Contents))
	}
	text := result.Contents[0].Text
	for _, name := range []string{"baseline", "loaded", "hypoxia", "fluorosis"} {
		if !strings.Contains(text, "**"+name+"**") {
			t.Errorf("resource does not list %s:\n%s", name, text)
		}
	}
}

func TestRunResource(t *testing.T) {
	server, _, _ := setupTestServer(t)
	ctx := context.Background()

	_, sim, err := server.handleBoneSimulate(ctx, nil, BoneSimulateInput{Definition: "name: res\ndays: 2\n"})
	if err != nil {
		t.Fatalf("handleBoneSimulate failed: %v", err)
	}
	uri := runURIPrefix + sim.Runs[0].ID

	result, err := server.handleRunResource(ctx, &sdk.ReadResourceRequest{
		Params: &sdk.ReadResourceParams{URI: uri},
	})
	if err != nil {
		t.Fatalf("handleRunResource failed: %v", err)
	}
	var run store.Run
	if err := json.Unmarshal([]byte(result.Contents[0].Text), &run); err != nil {
		t.Fatalf("resource is not a run: %v", err)
	}
	if run.ID != sim.Runs[0].ID || len(run.Snapshots) != 2 {
		t.Errorf("run = %s with %d snapshots", run.ID, len(run.Snapshots))
	}

	for _, bad := range []string{runURIPrefix, "other://runs/x", runURIPrefix + "missing"} {
		_, err := server.handleRunResource(ctx, &sdk.ReadResourceRequest{
			Params: &sdk.ReadResourceParams{URI: bad},
		})
		if err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

type stubSimulator struct {
	runs []*store.Run
	cost int
	err  error
}

func (s *stubSimulator) Cost(simulation.Scenario) (int, error) {
	return s.cost, nil
}

func (s *stubSimulator) RunReplicates(context.Context, simulation.Scenario) ([]*store.Run, error) {
	return s.runs, s.err
}

func (s *stubSimulator) Estimate(context.Context, simulation.Scenario) (tissue.Report, error) {
	return tissue.Report{}, s.err
}
