package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/sakif/classroom/internal/mcptool"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the code_run tool over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout.

The server exposes one tool, code_run, backed by the configured executor.
Logs go to stderr; stdout carries the protocol.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	exec, cleanup, err := buildExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := server.ServeStdio(mcptool.NewServer(exec, version, logger)); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
