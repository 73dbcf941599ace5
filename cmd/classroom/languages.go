package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/classroom/internal/config"
	"github.com/sakif/classroom/internal/executor"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and their toolchains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(io.Discard)
		if err != nil {
			return err
		}
		return printLanguages(cmd.OutOrStdout(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func printLanguages(w io.Writer, cfg *config.Config) error {
	toolchains := cfg.LocalConfig().Toolchains
	images := cfg.DockerConfig().Images

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LANGUAGE\tACCEPTS\tSTRATEGY\tLOCAL TOOLCHAIN\tDOCKER IMAGE")
	for _, l := range executor.Languages() {
		tc := toolchains[l.Class]
		var tools []string
		for _, bin := range []string{tc.Interpreter, tc.Compiler, tc.Runtime} {
			if bin != "" {
				tools = append(tools, bin)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			l.Name,
			strings.Join(l.Aliases, ", "),
			l.Strategy,
			strings.Join(tools, " + "),
			images[l.Class],
		)
	}
	return tw.Flush()
}
