package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/drsim/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve drsim tools over the Model Context Protocol (stdio)",
		Long: `Start an MCP server on stdin/stdout exposing drsim_run, drsim_estimate
and drsim_scenarios. Logs go to stderr so they never corrupt the protocol stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			auditDir, _ := cmd.Flags().GetString("audit-dir")

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "drsim",
				Version:  version,
				Base:     cfg,
				AuditDir: auditDir,
				Logger:   newLogger(cmd, cfg),
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, cancel := withSignals(cmd.Context())
			defer cancel()

			return server.Run(ctx)
		},
	}

	cmd.Flags().String("audit-dir", "", "Append tool invocations to audit.jsonl in this directory")
	return cmd
}
