package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/cycle"
)

var runCmd = &cobra.Command{
	Use:   "run <demo-id>",
	Short: "Run a saved demo",
	Long: `Load a saved demo and run it. If it fails, the software engineer role is
asked for a fix, as in 'generate'.

Examples:
  demogen run 3f1c2a9e-5b7d-4f43-9a1e-8d2f0c6b7a11`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s := cycle.NewSession()
	dm, err := a.pipeline.LoadDemo(cmd.Context(), s, args[0])
	if err != nil {
		return err
	}

	a.display.ShowHeader("demogen run", dm.ID)
	a.display.ShowCode(s.Artifact.Code, s.Artifact.Path)
	return runSession(cmd, a, s, false)
}
