// Command classroom is the code execution backend for the classroom platform.
//
// Subcommands:
//
//	classroom serve      → HTTP API (auth, code execution, session history)
//	classroom run        → execute one program with the host toolchains
//	classroom languages  → list the accepted languages
//	classroom mcp        → stdio MCP server exposing the code_run tool
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/classroom/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "classroom",
	Short: "Classroom - code execution backend",
	Long: `Classroom compiles and runs student programs in Python, JavaScript,
Rust, C++ and Java, and records every run as a code session.

Configuration is read from classroom.yaml (current directory or
$HOME/.classroom), a .env file, and CLASSROOM_* environment variables.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a config file (default: search ./classroom.yaml, $HOME/.classroom)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds a logger writing to w.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, cfg.Log.NewLogger(w), nil
}
