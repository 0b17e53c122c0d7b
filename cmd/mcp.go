package cmd

import (
	"github.com/spf13/cobra"

	"github.com/arkiven4/autowatch/internal/config"
	mcpserver "github.com/arkiven4/autowatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for AI assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an AI assistant query autowatch for the supervised projects,
their latest status, and recorded failures. Configure with:

  {
    "mcpServers": {
      "autowatch": { "command": "autowatch", "args": ["mcp"] }
    }
  }

Available tools: autowatch_list_projects, autowatch_status,
autowatch_failures`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		s, err := getStore()
		if err != nil {
			return err
		}
		return mcpserver.NewServer(cfg, s).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
