package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

var (
	itemActor string
	itemJSON  bool
)

// itemStep describes one lifecycle subcommand. An empty from list means any
// source status the transition table allows.
type itemStep struct {
	name  string
	short string
	to    models.ItemStatus
	from  []models.ItemStatus
}

var itemSteps = []itemStep{
	{name: "start", short: "Start work on an item", to: models.ItemInProgress},
	{name: "complete", short: "Mark an item as completed", to: models.ItemCompleted},
	{name: "verify", short: "Sign off a completed item", to: models.ItemVerified},
	{name: "fail", short: "Mark an item as failed", to: models.ItemFailed},
	{name: "retry", short: "Move a failed item back to in progress", to: models.ItemInProgress,
		from: []models.ItemStatus{models.ItemFailed}},
	{name: "skip", short: "Mark an item as not applicable", to: models.ItemSkipped},
	{name: "unskip", short: "Return a skipped item to pending", to: models.ItemPending,
		from: []models.ItemStatus{models.ItemSkipped}},
	{name: "reopen", short: "Reopen a completed or verified item", to: models.ItemInProgress,
		from: []models.ItemStatus{models.ItemCompleted, models.ItemVerified}},
}

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Move checklist items through their lifecycle",
	Long: `Move a checklist item through its lifecycle:

  pending -> in_progress -> completed -> verified
                         -> failed -> (retry) in_progress
  pending/in_progress -> skipped -> (unskip) pending
  completed/verified -> (reopen) in_progress`,
}

func newItemStepCmd(step itemStep) *cobra.Command {
	return &cobra.Command{
		Use:   step.name + " <checklist-id> <item-id>",
		Short: step.short,
		Args:  cobra.ExactArgs(2),

		ValidArgsFunction: completeChecklistThenItem,
		RunE: func(cmd *cobra.Command, args []string) error {
			if Manager == nil {
				return fmt.Errorf("checklist manager not initialized")
			}
			checklistID, itemID := args[0], args[1]

			updated, err := Manager.SetItemStatusFrom(checklistID, itemID, step.from, step.to, resolveActor())
			if errors.Is(err, core.ErrInvalidTransition) {
				return fmt.Errorf("cannot %s item %s: %w", step.name, itemID, err)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if itemJSON {
				return writeJSON(w, updated)
			}
			fmt.Fprintf(w, "%s  %s %s\n", updated.ID, renderStatus(updated.Status), updated.Title)
			return nil
		},
	}
}

// resolveActor returns --by, falling back to $SITECHECK_ACTOR then $USER.
func resolveActor() string {
	if itemActor != "" {
		return itemActor
	}
	if a := os.Getenv("SITECHECK_ACTOR"); a != "" {
		return a
	}
	return os.Getenv("USER")
}

func init() {
	itemCmd.PersistentFlags().StringVar(&itemActor, "by", "", "Who performed the step (default $SITECHECK_ACTOR or $USER)")
	itemCmd.PersistentFlags().BoolVar(&itemJSON, "json", false, "Output the updated item as JSON")
	for _, step := range itemSteps {
		itemCmd.AddCommand(newItemStepCmd(step))
	}
	rootCmd.AddCommand(itemCmd)
}
