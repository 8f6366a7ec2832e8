package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/cycle"
)

var editSave bool

var editCmd = &cobra.Command{
	Use:   "edit <demo-id> <request>",
	Short: "Change a saved demo and run it",
	Long: `Load a saved demo, ask the software engineer role to apply a change
request to its code, then run the result with auto-repair.

With --save the edited demo is saved under a new ID; the original is kept.

Examples:
  demogen edit 3f1c2a9e-5b7d-4f43-9a1e-8d2f0c6b7a11 "print the numbers in reverse"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().BoolVar(&editSave, "save", false, "Save the edited demo when it runs successfully")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	a.display.ShowHeader("demogen edit", dm.ID)
	return editSession(cmd, a, s, strings.Join(args[1:], " "), editSave)
}

// editSession applies request to the session's code and runs the result.
func editSession(cmd *cobra.Command, a *app, s *cycle.Session, request string, save bool) error {
	a.display.StartSpinner("software engineer is editing the code...")
	if err := a.pipeline.Edit(cmd.Context(), s, request); err != nil {
		a.display.StopSpinner()
		return err
	}
	a.display.ShowCode(s.Artifact.Code, s.Artifact.Path)
	return runSession(cmd, a, s, save)
}
