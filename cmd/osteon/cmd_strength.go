package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/tissue"
)

func newStrengthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strength",
		Short: "Evaluate bone strength of a sample",
		Long: `Evaluate the strength of a coupled bone sample.

With --days 0 (the default) the fresh sample is evaluated. Otherwise the
sample is aged day by day under the given environment first. Nothing is
stored or exported.

Examples:
  osteon strength
  osteon strength --days 30 --oxygen 0.2
  osteon strength --days 30 --activation legacy --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sc, err := strengthScenario(cmd)
			if err != nil {
				return err
			}

			r := simulation.NewRunner(
				simulation.WithBaseConfig(cfg.Simulation.Tissue()),
				simulation.WithConditions(cfg.Environment.Conditions()),
				simulation.WithStepDays(cfg.Simulation.StepDays),
			)
			report, err := r.Estimate(cmd.Context(), sc)
			if err != nil {
				return fmt.Errorf("strength evaluation failed: %w", err)
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().Float64("days", 0, "Days to age the sample before evaluating")
	cmd.Flags().Float64("step-days", 0, "Step length in days (default from config)")
	cmd.Flags().Float64("ph", 0, "Environment pH (default from config)")
	cmd.Flags().Float64("temperature", 0, "Environment temperature in °C (default from config)")
	cmd.Flags().Float64("oxygen", 0, "Oxygen availability 0-1 (default from config)")
	cmd.Flags().String("factor-policy", "", "Factor policy: clamp or raw")
	cmd.Flags().String("maturation", "", "Crosslink maturation: compounding or from-base")
	cmd.Flags().String("activation", "", "Enzyme activation: retry or legacy")
	cmd.Flags().Float64("enzyme-expression", 0, "Lysyl oxidase expression level")

	return cmd
}

// strengthScenario turns the strength flags into an unnamed scenario. Only
// flags the user set override the configured environment.
func strengthScenario(cmd *cobra.Command) (simulation.Scenario, error) {
	flags := cmd.Flags()
	sc := simulation.Scenario{Name: "strength"}
	sc.Days, _ = flags.GetFloat64("days")
	sc.StepDays, _ = flags.GetFloat64("step-days")
	sc.Policies.FactorPolicy, _ = flags.GetString("factor-policy")
	sc.Policies.Maturation, _ = flags.GetString("maturation")
	sc.Policies.Activation, _ = flags.GetString("activation")
	sc.Policies.EnzymeExpression, _ = flags.GetFloat64("enzyme-expression")

	for name, dst := range map[string]**float64{
		"ph":          &sc.Environment.PH,
		"temperature": &sc.Environment.Temperature,
		"oxygen":      &sc.Environment.Oxygen,
	} {
		if !flags.Changed(name) {
			continue
		}
		v, err := flags.GetFloat64(name)
		if err != nil {
			return sc, err
		}
		*dst = &v
	}
	return sc, nil
}

func printReport(w io.Writer, r tissue.Report) {
	fmt.Fprintf(w, "Strength:           %.4f\n", r.Strength)
	fmt.Fprintf(w, "Matrix strength:    %.4f\n", r.MatrixStrength)
	fmt.Fprintf(w, "Age:                %g days (%d steps)\n", r.Day, r.Steps)
	fmt.Fprintf(w, "Mineralization:     %s\n", r.Stage)
	fmt.Fprintf(w, "Composition:        mineral %.1f%%, organic %.1f%%, water %.1f%%, protein %.1f%%\n",
		r.Composition.Mineral, r.Composition.Organic, r.Composition.Water, r.Composition.Protein)
	fmt.Fprintf(w, "Organization:       fibrils %.3f, crystals %.3f, crosslinks %.3f\n",
		r.Organization.FibrilAlignment, r.Organization.CrystalOrientation, r.Organization.CrosslinkDensity)
	fmt.Fprintf(w, "Crosslinks:         %d (%d mature)\n", r.Crosslinks, r.MatureCrosslinks)
	fmt.Fprintf(w, "Enzyme:             %s (%d catalytic events)\n", r.EnzymeState, r.CatalyticEvents)
	if r.Loads > 0 {
		fmt.Fprintf(w, "Loads:              %d (peak strain %.5f)\n", r.Loads, r.PeakStrain)
	}
}
