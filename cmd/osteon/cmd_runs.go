package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored simulation runs",
	}
	cmd.AddCommand(newRunsListCmd(), newRunsShowCmd())
	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}
			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
					"runs":  runs,
					"count": len(runs),
				})
			}
			printRunTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs (0 for all)")
	return cmd
}

func newRunsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			snapshots, _ := cmd.Flags().GetBool("snapshots")

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			run, err := a.runs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "Scenario:           %s (replicate %d)\n", run.Scenario, run.Replicate)
			fmt.Fprintf(out, "Created:            %s\n", run.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Fprintf(out, "Policies:           factors %s, maturation %s, activation %s\n",
				run.Config.Policy, run.Config.Maturation, run.Config.Activation)
			fmt.Fprintln(out)
			printReport(out, run.Report)

			if snapshots {
				fmt.Fprintf(out, "\n%8s  %10s  %8s  %9s  %10s  %s\n", "DAY", "STRENGTH", "MINERAL", "DENSITY", "CROSSLINKS", "STAGE")
				for _, s := range run.Snapshots {
					fmt.Fprintf(out, "%8.2f  %10.4f  %8.3f  %9.4f  %10d  %s\n",
						s.Day, s.Strength, s.Mineral, s.CrosslinkDensity, s.Crosslinks, s.Stage)
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("snapshots", false, "Print the per-step snapshot table")
	return cmd
}
