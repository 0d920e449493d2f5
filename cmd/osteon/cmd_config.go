package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/osteon/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect osteon configuration",
		Long: `Inspect osteon configuration.

Configuration is read from <data dir>/config.yaml (data dir is $OSTEON_HOME
or ~/.osteon), then OSTEON_* environment variables. A .env file in the
working directory is loaded first.`,
	}
	cmd.AddCommand(newConfigShowCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Never print database credentials.
			redacted := *cfg
			redacted.Store.DSN = cfg.Store.RedactedDSN()

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(redacted)
			}

			data, err := yaml.Marshal(redacted)
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", filepath.Join(config.DataDir(), "config.yaml"), data)
			return nil
		},
	}
}
