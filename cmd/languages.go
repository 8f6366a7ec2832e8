package cmd

import (
	"fmt"
	"io"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/runner"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages",
	Long: `List the languages generated code can be written in, with the
interpreter each one runs under and whether it was found on PATH.

Select one with 'language:' in .demogen/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listLanguages(cmd.OutOrStdout(), exec.LookPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}

func listLanguages(out io.Writer, lookPath func(string) (string, error)) {
	for _, name := range runner.Available() {
		rt, err := runner.Lookup(name)
		if err != nil {
			continue
		}
		status := "not found"
		if path, err := lookPath(rt.Binary); err == nil {
			status = path
		}
		fmt.Fprintf(out, "  %-8s %-22s %s\n", name, rt.Display, status)
	}
}
