package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/simulation"
	"github.com/nvandessel/osteon/internal/store"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulation scenario",
		Long: `Run a built-in or file-based scenario, store every replicate and
export it when an export driver is configured.

Examples:
  osteon simulate --list
  osteon simulate --scenario loaded
  osteon simulate --file experiment.yaml --replicates 5 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			list, _ := cmd.Flags().GetBool("list")
			if list {
				return listScenarios(cmd.OutOrStdout(), jsonOut)
			}

			sc, err := scenarioFromFlags(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			parallel, _ := cmd.Flags().GetInt("parallel")
			runs, err := a.runner(simulation.WithParallelism(parallel)).RunReplicates(ctx, sc)
			if err != nil {
				return fmt.Errorf("simulation failed: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"scenario": sc.Name,
					"runs":     runs,
					"count":    len(runs),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scenario %s: %g days, %d replicate(s)\n\n", sc.Name, sc.Days, len(runs))
			printRunTable(cmd.OutOrStdout(), derefRuns(runs))
			return nil
		},
	}

	cmd.Flags().String("scenario", "baseline", "Built-in scenario name")
	cmd.Flags().String("file", "", "Scenario YAML file (overrides --scenario)")
	cmd.Flags().Float64("days", 0, "Override the scenario length in days")
	cmd.Flags().Int("replicates", 0, "Override the replicate count")
	cmd.Flags().Int("parallel", 0, "Maximum replicates run at once (default GOMAXPROCS)")
	cmd.Flags().Bool("list", false, "List built-in scenarios and exit")

	return cmd
}

func scenarioFromFlags(cmd *cobra.Command) (simulation.Scenario, error) {
	var (
		sc  simulation.Scenario
		err error
	)
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		sc, err = simulation.LoadScenarioFile(file)
	} else {
		name, _ := cmd.Flags().GetString("scenario")
		sc, err = simulation.Builtin(name)
	}
	if err != nil {
		return sc, err
	}
	if days, _ := cmd.Flags().GetFloat64("days"); days != 0 {
		sc.Days = days
	}
	if n, _ := cmd.Flags().GetInt("replicates"); n != 0 {
		sc.Replicates = n
	}
	return sc, sc.Validate()
}

func listScenarios(w io.Writer, jsonOut bool) error {
	var scenarios []simulation.Scenario
	for _, name := range simulation.BuiltinNames() {
		sc, err := simulation.Builtin(name)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, sc)
	}
	if jsonOut {
		return json.NewEncoder(w).Encode(scenarios)
	}
	for _, sc := range scenarios {
		fmt.Fprintf(w, "%-10s %5g days  %s\n", sc.Name, sc.Days, strings.TrimSpace(sc.Description))
	}
	return nil
}

func derefRuns(runs []*store.Run) []store.Run {
	out := make([]store.Run, len(runs))
	for i, r := range runs {
		out[i] = *r
	}
	return out
}

func printRunTable(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-12s  %3s  %7s  %10s  %-9s  %s\n", "ID", "SCENARIO", "REP", "DAYS", "STRENGTH", "STAGE", "CROSSLINKS")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-12s  %3d  %7g  %10.4f  %-9s  %d\n",
			r.ID, r.Scenario, r.Replicate, r.Days, r.FinalStrength, r.Report.Stage, r.Report.Crosslinks)
	}
}
