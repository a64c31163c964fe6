package main

import (
	"github.com/spf13/cobra"

	"codescout/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyze_repository tool over MCP stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		return mcpserver.Serve(mcpserver.New(a.service, version, a.cfg.Timeout, a.log))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
