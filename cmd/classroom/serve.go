package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/classroom/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the classroom HTTP server.

Public routes: /healthz, /api/languages, /api/auth/register, /api/auth/login
and the GitHub OAuth routes when a client id is configured. Code execution
lives under /api/courses/{courseID}/code and requires a token.

Examples:
  classroom serve
  classroom serve --port 9090
  CLASSROOM_EXECUTOR_BACKEND=docker classroom serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		return err
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}

	exec, cleanup, err := buildExecutor(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := server.New(cfg, exec, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start blocks until SIGINT/SIGTERM and closes the server's resources.
	return srv.Start()
}
