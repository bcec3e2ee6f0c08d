package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpserver "github.com/amtly/amtly/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the
routed question answering, form field lookup, form suggestions and document
search as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(context.Background(), cfg)
		if err != nil {
			return err
		}

		mcpserver.Version = Version

		docs := 0
		if a.store != nil {
			docs = a.store.Count()
		}
		logger.Info("amtly MCP server started on stdio", zap.Int("documents", docs))

		return mcpserver.NewServer(a.engine, a.vectorStore(), logger).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
