package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/classroom/internal/executor"
	"github.com/sakif/classroom/internal/executor/local"
)

var runCmd = &cobra.Command{
	Use:   "run [file|-]",
	Short: "Execute a program once with the host toolchains",
	Long: `Compile and run one program with the local toolchains and print its output.

Code can be provided via:
  - File argument: classroom run main.rs
  - Stdin:         echo 'print(1+1)' | classroom run --lang python -

The language is taken from --lang, or guessed from the file extension.
The command exits with status 1 when the program fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringP("lang", "l", "", "Language (python, javascript, rust, cpp, java and their aliases)")
	rootCmd.AddCommand(runCmd)
}

// extensions guesses a language from a file name when --lang is absent.
var extensions = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".mjs":  "javascript",
	".rs":   "rust",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".java": "java",
}

func runRun(cmd *cobra.Command, args []string) error {
	lang, _ := cmd.Flags().GetString("lang")

	var (
		source   []byte
		filename string
		err      error
	)
	if len(args) == 0 || args[0] == "-" {
		source, err = io.ReadAll(cmd.InOrStdin())
	} else {
		filename = args[0]
		source, err = os.ReadFile(filename)
	}
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	if len(strings.TrimSpace(string(source))) == 0 {
		return errors.New("no code to run")
	}

	language, err := detectLanguage(lang, filename)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := local.New(cfg.LocalConfig(), logger).Execute(ctx, executor.ExecutionRequest{
		Language: language,
		Code:     string(source),
	})
	if err != nil {
		return err
	}

	if !res.Success {
		fmt.Fprint(cmd.ErrOrStderr(), res.Error)
		return fmt.Errorf("execution failed (%s) after %dms", res.Kind, res.ExecutionTimeMs)
	}
	fmt.Fprint(cmd.OutOrStdout(), res.Output)
	return nil
}

// detectLanguage returns the --lang value, or the language implied by the
// file extension.
func detectLanguage(lang, filename string) (string, error) {
	if lang != "" {
		return lang, nil
	}
	if filename == "" {
		return "", errors.New("--lang is required when reading from stdin")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if l, ok := extensions[ext]; ok {
		return l, nil
	}
	return "", fmt.Errorf("cannot detect language from %q, use --lang", filename)
}
