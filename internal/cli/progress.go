package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrNotReady is returned by validate when the checklist cannot be signed off.
var ErrNotReady = errors.New("checklist not ready for sign-off")

var progressJSON bool

var progressCmd = &cobra.Command{
	Use:   "progress <checklist-id>",
	Short: "Show completion figures for a checklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		p, err := Manager.Progress(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if progressJSON {
			return writeJSON(w, p)
		}
		fmt.Fprintf(w, "Progress for %s\n\n", args[0])
		printProgress(w, p)
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <checklist-id>",
	Short: "Check whether a checklist is ready for sign-off",
	Long: `Validate a checklist for sign-off. Every mandatory and critical item must
be completed or verified. Failed items and items awaiting verification are
reported as warnings (errors when validation.strict_verification is set).

Exits non-zero when the checklist is not ready.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		res, err := Manager.Validate(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if progressJSON {
			if err := writeJSON(w, res); err != nil {
				return err
			}
		} else {
			printValidation(w, res)
		}
		if !res.IsValid {
			return fmt.Errorf("%s: %w", args[0], ErrNotReady)
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().BoolVar(&progressJSON, "json", false, "Output as JSON")
	validateCmd.Flags().BoolVar(&progressJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(validateCmd)
}
