package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/osteon/internal/ratelimit"
	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
)

// Tool names.
const (
	ToolStrength = "bone_strength"
	ToolSimulate = "bone_simulate"
	ToolRuns     = "bone_runs"
)

// limitKey is the rate limit bucket for the stdio client. A stdio server
// only ever has one.
const limitKey = "mcp"

const (
	scenariosURI = "osteon://scenarios"
	runURIPrefix = "osteon://runs/"

	defaultRunsLimit = 20
)

// registerTools registers all osteon MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolStrength,
		Description: "Evaluate bone strength for a sample aged under the given environment and policies",
	}, s.handleBoneStrength)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolSimulate,
		Description: "Run a bone tissue simulation scenario (built-in or YAML) and store every replicate",
	}, s.handleBoneSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ToolRuns,
		Description: "List recent simulation runs or show one run with its per-step snapshots",
	}, s.handleBoneRuns)
}

// registerResources registers the scenario catalogue and stored runs.
func (s *Server) registerResources() {
	s.server.AddResource(&sdk.Resource{
		URI:         scenariosURI,
		Name:        "osteon-scenarios",
		Description: "Built-in simulation scenarios that bone_simulate accepts by name.",
		MIMEType:    "text/markdown",
	}, s.handleScenariosResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: runURIPrefix + "{id}",
		Name:        "osteon-run",
		Description: "A stored simulation run as JSON, including per-step snapshots.",
		MIMEType:    "application/json",
	}, s.handleRunResource)
}

// handleScenariosResource lists the built-in scenarios.
func (s *Server) handleScenariosResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Built-in scenarios\n\n")
	for _, name := range simulation.BuiltinNames() {
		sc, err := simulation.Builtin(name)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&sb, "- **%s** (%g days", sc.Name, sc.Days)
		if sc.Replicates > 1 {
			fmt.Fprintf(&sb, ", %d replicates", sc.Replicates)
		}
		sb.WriteString(")")
		if sc.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(strings.TrimSpace(sc.Description))
		}
		sb.WriteString("\n")
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      scenariosURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleRunResource returns a stored run as JSON.
func (s *Server) handleRunResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	if !strings.HasPrefix(uri, runURIPrefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	id := strings.TrimPrefix(uri, runURIPrefix)
	if id == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	if s.runs == nil {
		return nil, errNoStore
	}

	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, sdk.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode run: %w", err)
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(data),
			},
		},
	}, nil
}

var errNoStore = errors.New("no run store configured")

// handleBoneStrength implements the bone_strength tool.
func (s *Server) handleBoneStrength(ctx context.Context, req *sdk.CallToolRequest, args BoneStrengthInput) (_ *sdk.CallToolResult, _ BoneStrengthOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolStrength, start, retErr, sanitizeToolParams(map[string]any{
			"days": args.Days, "step_days": args.StepDays,
			"factor_policy": args.FactorPolicy, "maturation": args.Maturation, "activation": args.Activation,
		}))
	}()

	sc := simulation.Scenario{
		Name:     "strength",
		Days:     args.Days,
		StepDays: args.StepDays,
		Environment: simulation.EnvironmentSpec{
			PH:          args.PH,
			Temperature: args.Temperature,
			Oxygen:      args.Oxygen,
		},
		Policies: simulation.Policies{
			FactorPolicy:     args.FactorPolicy,
			Maturation:       args.Maturation,
			Activation:       args.Activation,
			EnzymeExpression: args.EnzymeExpression,
		},
	}
	if err := s.charge(ratelimit.OpStrength, sc); err != nil {
		return nil, BoneStrengthOutput{}, err
	}
	report, err := s.sim.Estimate(ctx, sc)
	if err != nil {
		return nil, BoneStrengthOutput{}, fmt.Errorf("strength estimate failed: %w", err)
	}

	return nil, BoneStrengthOutput{
		Strength: report.Strength,
		Summary: fmt.Sprintf("Strength %.4f after %g days (%d steps): %s mineralization, %d crosslinks (%d mature), enzyme %s",
			report.Strength, report.Day, report.Steps, report.Stage, report.Crosslinks, report.MatureCrosslinks, report.EnzymeState),
		Report: report,
	}, nil
}

// handleBoneSimulate implements the bone_simulate tool.
func (s *Server) handleBoneSimulate(ctx context.Context, req *sdk.CallToolRequest, args BoneSimulateInput) (_ *sdk.CallToolResult, _ BoneSimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolSimulate, start, retErr, sanitizeToolParams(map[string]any{
			"scenario": args.Scenario, "definition": args.Definition, "replicates": args.Replicates,
		}))
	}()

	sc, err := resolveScenario(args)
	if err != nil {
		return nil, BoneSimulateOutput{}, err
	}
	if err := s.charge(ratelimit.OpSimulate, sc); err != nil {
		return nil, BoneSimulateOutput{}, err
	}

	runs, err := s.sim.RunReplicates(ctx, sc)
	if err != nil {
		return nil, BoneSimulateOutput{}, fmt.Errorf("simulation %q failed: %w", sc.Name, err)
	}

	out := BoneSimulateOutput{Runs: make([]RunSummary, 0, len(runs)), Count: len(runs)}
	for _, run := range runs {
		out.Runs = append(out.Runs, summarize(run))
	}
	out.Message = fmt.Sprintf("Simulated %q for %g days: %d run(s), final strength %.4f",
		sc.Name, sc.Days, len(runs), runs[0].FinalStrength)
	s.logger.Info("mcp simulation finished", "scenario", sc.Name, "runs", len(runs))
	return nil, out, nil
}

// charge bills op for the sample steps sc would take. Invalid scenarios
// fail here with the error the simulator would give them.
func (s *Server) charge(op ratelimit.Op, sc simulation.Scenario) error {
	cost, err := s.sim.Cost(sc)
	if err != nil {
		return err
	}
	return s.limits.Charge(op, limitKey, cost)
}

func resolveScenario(args BoneSimulateInput) (simulation.Scenario, error) {
	var (
		sc  simulation.Scenario
		err error
	)
	switch {
	case args.Scenario != "" && args.Definition != "":
		return sc, fmt.Errorf("provide either scenario or definition, not both")
	case args.Definition != "":
		sc, err = simulation.ParseScenario([]byte(args.Definition))
	case args.Scenario != "":
		sc, err = simulation.Builtin(args.Scenario)
	default:
		return sc, fmt.Errorf("scenario or definition is required")
	}
	if err != nil {
		return sc, err
	}
	if args.Replicates < 0 {
		return sc, fmt.Errorf("replicates must not be negative, got %d", args.Replicates)
	}
	if args.Replicates > 0 {
		sc.Replicates = args.Replicates
	}
	return sc, nil
}

// handleBoneRuns implements the bone_runs tool.
func (s *Server) handleBoneRuns(ctx context.Context, req *sdk.CallToolRequest, args BoneRunsInput) (_ *sdk.CallToolResult, _ BoneRunsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ToolRuns, start, retErr, sanitizeToolParams(map[string]any{
			"id": args.ID, "limit": args.Limit,
		}))
	}()

	if err := s.limits.Charge(ratelimit.OpRuns, limitKey, 1); err != nil {
		return nil, BoneRunsOutput{}, err
	}
	if s.runs == nil {
		return nil, BoneRunsOutput{}, errNoStore
	}

	if args.ID != "" {
		run, err := s.runs.GetRun(ctx, args.ID)
		if err != nil {
			return nil, BoneRunsOutput{}, err
		}
		return nil, BoneRunsOutput{
			Run: &RunDetail{
				Summary:   summarize(run),
				Report:    run.Report,
				Snapshots: run.Snapshots,
			},
			Count: 1,
		}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, BoneRunsOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}
	out := BoneRunsOutput{Runs: make([]RunSummary, 0, len(runs)), Count: len(runs)}
	for i := range runs {
		out.Runs = append(out.Runs, summarize(&runs[i]))
	}
	return nil, out, nil
}
