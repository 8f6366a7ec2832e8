package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var demosCmd = &cobra.Command{
	Use:   "demos",
	Short: "Manage the demo library",
	Long: `List, show or delete saved demos.

Examples:
  demogen demos list
  demogen demos show <demo-id>
  demogen demos delete <demo-id>`,
}

var demosListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved demos",
	Args:  cobra.NoArgs,
	RunE:  runDemosList,
}

var demosShowCmd = &cobra.Command{
	Use:   "show <demo-id>",
	Short: "Show a saved demo",
	Args:  cobra.ExactArgs(1),
	RunE:  runDemosShow,
}

var demosDeleteCmd = &cobra.Command{
	Use:   "delete <demo-id>",
	Short: "Delete a saved demo",
	Args:  cobra.ExactArgs(1),
	RunE:  runDemosDelete,
}

func init() {
	demosCmd.AddCommand(demosListCmd)
	demosCmd.AddCommand(demosShowCmd)
	demosCmd.AddCommand(demosDeleteCmd)
	rootCmd.AddCommand(demosCmd)
}

func runDemosList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	demos, err := a.store.List(cmd.Context())
	if err != nil {
		return err
	}
	a.display.ShowDemos(demos)
	return nil
}

func runDemosShow(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	dm, err := a.store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	a.display.ShowDemo(dm)
	return nil
}

func runDemosDelete(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.pipeline.DeleteDemo(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("demo not found: %s", args[0])
	}
	a.display.ShowSuccess(fmt.Sprintf("Demo %s deleted", args[0]))
	return nil
}
