package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/internal/core"
	"github.com/valter-silva-au/sitecheck/pkg/models"
	"gopkg.in/yaml.v3"
)

var (
	checklistTemplate  string
	checklistName      string
	checklistTask      string
	checklistOverrides string
	checklistJSON      bool

	addItemMandatory bool
	addItemCritical  bool
	addItemVerify    bool
	addItemAssignee  string
)

var checklistCmd = &cobra.Command{
	Use:     "checklist",
	Aliases: []string{"cl"},
	Short:   "Create and manage checklists",
}

var checklistNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a checklist, optionally from a template",
	Long: `Create a new checklist. With --template the items are instantiated from
the template with fresh IDs and pending status. --overrides points at a YAML
list of per-item field overrides applied by position, e.g.

  - assignee: "j.smith"
  - {}
  - mandatory: false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}

		var cl *models.Checklist
		var err error
		if checklistTemplate != "" {
			overrides, oerr := loadOverrides(checklistOverrides)
			if oerr != nil {
				return oerr
			}
			cl, err = Manager.CreateFromTemplate(checklistTemplate, checklistName, checklistTask, overrides)
		} else {
			cl, err = Manager.CreateEmpty(checklistName, checklistTask)
		}
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if checklistJSON {
			return writeJSON(w, cl)
		}
		fmt.Fprintf(w, "Created checklist %s (%d items)\n", cl.ID, len(cl.Items))
		return nil
	},
}

var checklistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored checklists with their progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		lists, err := Manager.List(core.ChecklistFilter{TaskID: checklistTask, TemplateID: checklistTemplate})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if checklistJSON {
			type row struct {
				models.Checklist
				Progress models.ProgressSummary `json:"progress"`
			}
			rows := make([]row, len(lists))
			for i, cl := range lists {
				rows[i] = row{Checklist: cl, Progress: core.CalculateProgress(cl.Items)}
			}
			return writeJSON(w, rows)
		}
		if len(lists) == 0 {
			fmt.Fprintln(w, "No checklists found.")
			return nil
		}
		fmt.Fprintf(w, "%-12s %-6s %-5s %-5s %s\n", "ID", "DONE", "MAND", "CRIT", "NAME")
		for _, cl := range lists {
			p := core.CalculateProgress(cl.Items)
			fmt.Fprintf(w, "%-12s %4d%% %4d%% %4d%% %s\n", cl.ID, p.CompletionPercentage, p.MandatoryCompletion, p.CriticalCompletion, cl.Name)
		}
		return nil
	},
}

var checklistShowCmd = &cobra.Command{
	Use:   "show <checklist-id>",
	Short: "Show a checklist and its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		cl, err := Manager.Get(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if checklistJSON {
			return writeJSON(w, cl)
		}
		printChecklist(w, cl)
		fmt.Fprintln(w)
		printProgress(w, core.CalculateProgress(cl.Items))
		return nil
	},
}

var checklistDeleteCmd = &cobra.Command{
	Use:   "delete <checklist-id>",
	Short: "Delete a checklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		if err := Manager.Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted checklist %s\n", args[0])
		return nil
	},
}

var checklistAddItemCmd = &cobra.Command{
	Use:   "add-item <checklist-id> <title>",
	Short: "Append an item to a checklist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		item, err := Manager.AddItem(args[0], models.ChecklistItem{
			Title:                args[1],
			Mandatory:            addItemMandatory,
			Critical:             addItemCritical,
			RequiresVerification: addItemVerify,
			Assignee:             addItemAssignee,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added item %s\n", item.ID)
		return nil
	},
}

var checklistRemoveItemCmd = &cobra.Command{
	Use:   "remove-item <checklist-id> <item-id>",
	Short: "Remove an item from a checklist",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		if err := Manager.RemoveItem(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed item %s\n", args[1])
		return nil
	},
}

var checklistMoveItemCmd = &cobra.Command{
	Use:   "move-item <checklist-id> <item-id> <position>",
	Short: "Move an item to a 1-based position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Manager == nil {
			return fmt.Errorf("checklist manager not initialized")
		}
		pos, err := strconv.Atoi(args[2])
		if err != nil || pos < 1 {
			return fmt.Errorf("position must be a positive integer, got %q", args[2])
		}
		if err := Manager.MoveItem(args[0], args[1], pos-1); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved item %s to position %d\n", args[1], pos)
		return nil
	},
}

// loadOverrides reads a YAML list of item overrides. An empty path yields nil.
func loadOverrides(path string) ([]models.ItemOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}
	var overrides []models.ItemOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing overrides file %s: %w", path, err)
	}
	return overrides, nil
}

func init() {
	checklistNewCmd.Flags().StringVar(&checklistTemplate, "template", "", "Template ID to instantiate")
	checklistNewCmd.Flags().StringVar(&checklistName, "name", "", "Checklist name (defaults to the template name)")
	checklistNewCmd.Flags().StringVar(&checklistTask, "task", "", "ID of the owning task")
	checklistNewCmd.Flags().StringVar(&checklistOverrides, "overrides", "", "YAML file of per-item overrides")

	checklistListCmd.Flags().StringVar(&checklistTask, "task", "", "Only list checklists owned by this task")
	checklistListCmd.Flags().StringVar(&checklistTemplate, "template", "", "Only list checklists created from this template")

	checklistAddItemCmd.Flags().BoolVar(&addItemMandatory, "mandatory", false, "Item must be completed before sign-off")
	checklistAddItemCmd.Flags().BoolVar(&addItemCritical, "critical", false, "Item is critical")
	checklistAddItemCmd.Flags().BoolVar(&addItemVerify, "verify", false, "Item requires verification after completion")
	checklistAddItemCmd.Flags().StringVar(&addItemAssignee, "assignee", "", "Person responsible for the item")

	_ = checklistNewCmd.RegisterFlagCompletionFunc("template", completeTemplateIDs)
	_ = checklistListCmd.RegisterFlagCompletionFunc("template", completeTemplateIDs)

	checklistCmd.PersistentFlags().BoolVar(&checklistJSON, "json", false, "Output as JSON")
	checklistCmd.AddCommand(checklistNewCmd, checklistListCmd, checklistShowCmd, checklistDeleteCmd,
		checklistAddItemCmd, checklistRemoveItemCmd, checklistMoveItemCmd)
	rootCmd.AddCommand(checklistCmd)
}
