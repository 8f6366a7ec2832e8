package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/config"
	"github.com/jywlabs/demogen/internal/runner"
	"github.com/jywlabs/demogen/internal/template"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Show the current demogen configuration.

Displays settings from .demogen/config.yaml if present,
otherwise shows default values.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	return showConfig(dirFlag, cmd.OutOrStdout())
}

func showConfig(dir string, out io.Writer) error {
	configPath := config.Path(dir)
	display := filepath.Join(template.DemogenDir, template.ConfigFile)

	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "No %s found (using defaults)\n", display)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Run 'demogen init' to create a configuration file.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Default settings:")
		printConfig(out, config.Default())
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Current configuration (%s):\n", display)
	fmt.Fprintln(out)
	fmt.Fprintln(out, string(content))
	fmt.Fprintln(out, "Resolved settings:")
	printConfig(out, *cfg)
	return nil
}

func printConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "  provider:      %s\n", cfg.Provider)
	fmt.Fprintf(out, "  language:      %s\n", cfg.Language)
	fmt.Fprintf(out, "  maxAttempts:   %d\n", cfg.MaxAttempts)
	fmt.Fprintf(out, "  runTimeout:    %s\n", cfg.RunTimeout)
	fmt.Fprintf(out, "  scriptsDir:    %s\n", cfg.ScriptsDir)
	fmt.Fprintf(out, "  describe:      temperature=%.1f maxTokens=%d\n", cfg.Describe.Temperature, cfg.Describe.MaxTokens)
	fmt.Fprintf(out, "  code:          temperature=%.1f maxTokens=%d\n", cfg.Code.Temperature, cfg.Code.MaxTokens)
	fmt.Fprintf(out, "  store.driver:  %s\n", cfg.Store.Driver)
	if cfg.Store.Dir != "" {
		fmt.Fprintf(out, "  store.dir:     %s\n", cfg.Store.Dir)
	}
	if cfg.Store.DSN != "" {
		fmt.Fprintln(out, "  store.dsn:     (set)")
	}
	fmt.Fprintf(out, "  log.level:     %s\n", cfg.Log.Level)
	fmt.Fprintf(out, "  log.file:      %s\n", cfg.Log.File)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Available languages: %v\n", runner.Available())
}
