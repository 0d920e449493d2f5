package mcp

import (
	"github.com/nvandessel/osteon/internal/store"
	"github.com/nvandessel/osteon/internal/tissue"
)

// BoneStrengthInput defines the input for the bone_strength tool.
type BoneStrengthInput struct {
	Days             float64  `json:"days,omitempty" jsonschema:"Days to age the sample before evaluating it (0 evaluates a fresh sample)"`
	StepDays         float64  `json:"step_days,omitempty" jsonschema:"Step length in days (default 1)"`
	PH               *float64 `json:"ph,omitempty" jsonschema:"Environment pH (default 7.4)"`
	Temperature      *float64 `json:"temperature,omitempty" jsonschema:"Environment temperature in degrees Celsius (default 37)"`
	Oxygen           *float64 `json:"oxygen,omitempty" jsonschema:"Oxygen availability from 0 to 1 (default 1)"`
	FactorPolicy     string   `json:"factor_policy,omitempty" jsonschema:"Environmental factor policy: clamp or raw"`
	Maturation       string   `json:"maturation,omitempty" jsonschema:"Crosslink maturation mode: compounding or from-base"`
	Activation       string   `json:"activation,omitempty" jsonschema:"Enzyme activation policy: retry or legacy"`
	EnzymeExpression float64  `json:"enzyme_expression,omitempty" jsonschema:"Lysyl oxidase expression level"`
}

// BoneStrengthOutput defines the output for the bone_strength tool.
type BoneStrengthOutput struct {
	Strength float64       `json:"strength" jsonschema:"Overall bone strength"`
	Summary  string        `json:"summary" jsonschema:"Human-readable summary"`
	Report   tissue.Report `json:"report" jsonschema:"Full sample report"`
}

// BoneSimulateInput defines the input for the bone_simulate tool.
type BoneSimulateInput struct {
	Scenario   string `json:"scenario,omitempty" jsonschema:"Name of a built-in scenario (baseline, loaded, hypoxia, fluorosis)"`
	Definition string `json:"definition,omitempty" jsonschema:"Scenario definition in YAML, used instead of a built-in scenario"`
	Replicates int    `json:"replicates,omitempty" jsonschema:"Overrides the scenario's replicate count"`
}

// BoneSimulateOutput defines the output for the bone_simulate tool.
type BoneSimulateOutput struct {
	Runs    []RunSummary `json:"runs" jsonschema:"One summary per replicate"`
	Count   int          `json:"count" jsonschema:"Number of runs"`
	Message string       `json:"message" jsonschema:"Human-readable result message"`
}

// BoneRunsInput defines the input for the bone_runs tool.
type BoneRunsInput struct {
	ID    string `json:"id,omitempty" jsonschema:"Run ID to show in full; lists recent runs when empty"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of runs to list (default 20)"`
}

// BoneRunsOutput defines the output for the bone_runs tool.
type BoneRunsOutput struct {
	Runs  []RunSummary `json:"runs,omitempty" jsonschema:"Recent runs, newest first"`
	Run   *RunDetail   `json:"run,omitempty" jsonschema:"The requested run"`
	Count int          `json:"count" jsonschema:"Number of runs returned"`
}

// RunSummary provides a simplified view of a stored run.
type RunSummary struct {
	ID            string  `json:"id"`
	Scenario      string  `json:"scenario"`
	Replicate     int     `json:"replicate"`
	CreatedAt     string  `json:"created_at"`
	Days          float64 `json:"days"`
	Steps         int     `json:"steps"`
	FinalStrength float64 `json:"final_strength"`
	Stage         string  `json:"stage"`
	Crosslinks    int     `json:"crosslinks"`
}

// RunDetail is a run with its report and per-step snapshots.
type RunDetail struct {
	Summary   RunSummary       `json:"summary"`
	Report    tissue.Report    `json:"report"`
	Snapshots []store.Snapshot `json:"snapshots"`
}

func summarize(run *store.Run) RunSummary {
	return RunSummary{
		ID:            run.ID,
		Scenario:      run.Scenario,
		Replicate:     run.Replicate,
		CreatedAt:     run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		Days:          run.Days,
		Steps:         run.Steps,
		FinalStrength: run.FinalStrength,
		Stage:         run.Report.Stage,
		Crosslinks:    run.Report.Crosslinks,
	}
}
