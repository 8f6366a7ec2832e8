package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jywlabs/demogen/internal/config"
	"github.com/jywlabs/demogen/internal/script"
)

var (
	cleanupDryRun bool
	cleanupKeep   int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old generated scripts",
	Long: `Remove generated script files from the scripts directory.

Every generated, repaired or edited attempt is written to its own file, so the
directory grows with use. Saved demos are not affected.

Use --keep to keep the most recent files and --dry-run to preview what would be
removed without making changes.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Preview changes without removing files")
	cleanupCmd.Flags().IntVar(&cleanupKeep, "keep", 0, "Number of most recent scripts to keep")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(dirFlag)
	if err != nil {
		return err
	}
	return runCleanupFn(resolvePath(dirFlag, cfg.ScriptsDir), cleanupKeep, cleanupDryRun, cmd.OutOrStdout())
}

// runCleanupFn removes generated scripts in scriptsDir, newest keep files excepted.
func runCleanupFn(scriptsDir string, keep int, dryRun bool, out io.Writer) error {
	if keep < 0 {
		return fmt.Errorf("--keep must not be negative")
	}

	entries, err := os.ReadDir(scriptsDir)
	if os.IsNotExist(err) {
		fmt.Fprintln(out, "No generated scripts found.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", scriptsDir, err)
	}

	type scriptFile struct {
		path    string
		modTime int64
	}
	var files []scriptFile
	for _, e := range entries {
		// Only files written by the materializer; anything else is left alone.
		if e.IsDir() || !strings.HasPrefix(e.Name(), script.FilePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		files = append(files, scriptFile{path: filepath.Join(scriptsDir, e.Name()), modTime: info.ModTime().UnixNano()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime != files[j].modTime {
			return files[i].modTime > files[j].modTime
		}
		return files[i].path > files[j].path
	})

	if keep >= len(files) {
		fmt.Fprintln(out, "No generated scripts to remove.")
		return nil
	}

	removed := 0
	for _, f := range files[keep:] {
		if dryRun {
			fmt.Fprintf(out, "Would remove: %s\n", f.path)
		} else {
			if err := os.Remove(f.path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", f.path, err)
			}
			fmt.Fprintf(out, "Removed: %s\n", f.path)
		}
		removed++
	}

	if dryRun {
		fmt.Fprintf(out, "\nWould remove %d file(s). Run without --dry-run to remove.\n", removed)
	} else {
		fmt.Fprintf(out, "\nRemoved %d file(s).\n", removed)
	}
	return nil
}
