package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var (
	verboseFlag bool
	dirFlag     string
)

var rootCmd = &cobra.Command{
	Use:   "demogen",
	Short: "demogen - turn a use case into a running demo",
	Long: `demogen turns a short use case into a detailed description, writes code
for it, runs the code and repairs it automatically when it fails.

Workflow:
  demogen init                          Create .demogen/ with config and role prompts
  demogen generate "use case" --save    Describe, generate, run and save a demo
  demogen demos list                    Browse the demo library
  demogen run <demo-id>                 Run a saved demo again
  demogen edit <demo-id> "change"       Change a saved demo and run it

Commands:
  init        Initialize .demogen/ directory
  generate    Run a full cycle for a new use case
  run         Run a saved demo with auto-repair
  edit        Apply a change request to a saved demo
  demos       List, show or delete saved demos
  studio      Interactive session
  serve       Serve the JSON API
  config      Show current configuration
  version     Show version info

Credentials are read from the environment or .env:
  OPENAI_API_KEY, OPENAI_ENDPOINT, OPENAI_DEPLOYMENT_NAME, OPENAI_API_VERSION`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging on the console")
	rootCmd.PersistentFlags().StringVar(&dirFlag, "dir", ".", "Project directory containing .demogen/")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
