package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/core"
)

// WorkspaceInit is the WorkspaceInitializer used by the init command.
// Set during application wiring.
var WorkspaceInit core.WorkspaceInitializer

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a sitecheck data directory",
	Long: `Initialize a directory as a sitecheck data directory: .sitecheck.yaml,
an empty checklists.yaml, and a templates folder for custom templates.

Safe to run on existing directories -- files that already exist are skipped
and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceInit == nil {
			return fmt.Errorf("workspace initializer not initialized")
		}

		basePath := "."
		if len(args) > 0 {
			basePath = args[0]
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		result, err := WorkspaceInit.Init(absPath, nil)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(result.Created) > 0 {
			fmt.Fprintln(w, "Created:")
			for _, p := range result.Created {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(w, "  %s\n", rel)
			}
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintln(w, "Skipped (already exist):")
			for _, p := range result.Skipped {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(w, "  %s\n", rel)
			}
		}

		fmt.Fprintf(w, "\nsitecheck data directory initialized at %s\n", absPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
