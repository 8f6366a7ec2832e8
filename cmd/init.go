package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jywlabs/demogen/internal/template"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .demogen/ directory",
	Long: `Initialize the .demogen/ directory in the current project.

Creates:
  .demogen/
    config.yaml            # Provider, language, attempts, store
    product_owner.md       # Product owner role instructions
    software_engineer.md   # Software engineer role instructions
    scripts/               # One file per generated attempt

After init, put your credentials in .env and run 'demogen generate'.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	return initProject(dirFlag, cmd.OutOrStdout())
}

// initProject writes the default files into <dir>/.demogen/.
func initProject(dir string, out io.Writer) error {
	configDir := filepath.Join(dir, template.DemogenDir)
	scriptsDir := filepath.Join(configDir, template.ScriptsDir)

	if _, err := os.Stat(configDir); err == nil {
		return fmt.Errorf("%s/ already exists", template.DemogenDir)
	}

	if err := os.MkdirAll(scriptsDir, 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	for filename, content := range template.DefaultFiles() {
		filePath := filepath.Join(configDir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}

	fmt.Fprintln(out, "Initialized .demogen/")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Created:")
	fmt.Fprintln(out, "  .demogen/config.yaml           - Provider, language and store settings")
	fmt.Fprintln(out, "  .demogen/product_owner.md      - Product owner role (customize freely)")
	fmt.Fprintln(out, "  .demogen/software_engineer.md  - Software engineer role")
	fmt.Fprintln(out, "  .demogen/scripts/              - Generated scripts")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  1. Set OPENAI_API_KEY, OPENAI_ENDPOINT and OPENAI_DEPLOYMENT_NAME in .env")
	fmt.Fprintln(out, "  2. Run: demogen generate \"your use case\"")

	return nil
}
