package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/osteon/internal/config"
	"github.com/nvandessel/osteon/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout.

Tools: bone_strength, bone_simulate, bone_runs.
Resources: osteon://scenarios, osteon://runs/{id}.

Tool calls are audited to <data dir>/audit.jsonl. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := mcp.NewServer(&mcp.Config{
				Name:      "osteon",
				Version:   version,
				Simulator: a.runner(),
				Runs:      a.runs,
				AuditDir:  config.DataDir(),
				Logger:    a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			a.logger.Info("MCP server starting", "store", a.cfg.Store.Driver)
			return srv.Run(cmd.Context())
		},
	}
}
