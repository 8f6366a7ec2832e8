package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/repair"
)

// Generate command flags
var (
	generateSave  bool
	generateNoRun bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <use case>",
	Short: "Describe, generate and run a new demo",
	Long: `Run a full cycle for a use case:

1. The product owner role expands the use case into a detailed description
2. The software engineer role writes code for it
3. The code runs; on failure the engineer is asked for a fix and it runs again,
   up to maxAttempts times in total

Examples:
  demogen generate "Print the first 5 Fibonacci numbers"
  demogen generate "Plot a sine wave to sine.png" --save
  demogen generate "Parse a CSV of sales and print totals" --no-run`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateSave, "save", false, "Save the demo when it runs successfully")
	generateCmd.Flags().BoolVar(&generateNoRun, "no-run", false, "Stop after writing the code")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	useCase := strings.Join(args, " ")
	return generateDemo(cmd, a, cycle.NewSession(), useCase, generateSave, generateNoRun)
}

// generateDemo drives one cycle on s and reports each stage.
func generateDemo(cmd *cobra.Command, a *app, s *cycle.Session, useCase string, save, noRun bool) error {
	ctx := cmd.Context()
	d := a.display
	p := a.pipeline

	d.ShowHeader("demogen", fmt.Sprintf("Language: %s  Max attempts: %d", a.cfg.Language, a.cfg.MaxAttempts))

	if err := p.Start(s, useCase); err != nil {
		return err
	}
	d.ShowProgress(s)

	d.StartSpinner("product owner is writing the description...")
	if err := p.Describe(ctx, s); err != nil {
		d.StopSpinner()
		return err
	}
	d.ShowProgress(s)
	d.ShowDescription(s.Description)

	d.StartSpinner("software engineer is writing the code...")
	if err := p.Generate(ctx, s); err != nil {
		d.StopSpinner()
		return err
	}
	d.ShowProgress(s)
	d.ShowCode(s.Artifact.Code, s.Artifact.Path)

	if noRun {
		return saveIfRequested(cmd, a, s, save)
	}

	return runSession(cmd, a, s, save)
}

// runSession runs the session's code with auto-repair and saves on request.
func runSession(cmd *cobra.Command, a *app, s *cycle.Session, save bool) error {
	out, err := a.pipeline.Run(cmd.Context(), s)
	if out.Attempts == 0 && err != nil {
		return err
	}
	a.display.ShowOutcome(out)
	a.display.ShowProgress(s)

	if out.Attempts > 1 && out.Artifact.Code != "" {
		a.display.ShowCode(out.Artifact.Code, out.Artifact.Path)
	}
	if err != nil {
		return err
	}
	if out.State == repair.StateExhausted {
		return fmt.Errorf("code still failing after %d attempts", out.Attempts)
	}

	return saveIfRequested(cmd, a, s, save)
}

func saveIfRequested(cmd *cobra.Command, a *app, s *cycle.Session, save bool) error {
	if !save {
		return nil
	}
	dm, err := a.pipeline.Save(cmd.Context(), s)
	if err != nil {
		a.display.StopSpinner()
		return err
	}
	a.display.ShowSaved(dm)
	return nil
}
