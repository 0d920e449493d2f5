package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// A missing .env is normal; the environment may already be set.
	_ = godotenv.Load(".env")

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "osteon",
		Short: "Osteon - bone tissue simulation",
		Long: `osteon simulates the chain from hydroxyapatite crystals and collagen
crosslinking through matrix mineralization to whole-bone strength.

It runs scenarios, stores and exports the resulting runs, and serves
simulations over HTTP and MCP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default <data dir>/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: info, debug or trace (overrides config)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newStrengthCmd(),
		newSimulateCmd(),
		newRunsCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newConfigCmd(),
		newBackupCmd(),
	)
	return rootCmd
}
