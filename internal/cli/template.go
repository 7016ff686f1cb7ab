package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/sitecheck/pkg/models"
)

var (
	templateListCategory string
	templateListTag      string
	templateJSON         bool
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"templates", "tmpl"},
	Short:   "Browse checklist templates",
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available templates",
	Long: `List the built-in templates and any templates found in the data
directory's templates folder. Filter with --category and --tag.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("template catalog not initialized")
		}

		var out []models.ChecklistTemplate
		for _, t := range Catalog.ListTemplates() {
			if templateListCategory != "" && t.Category != templateListCategory {
				continue
			}
			if templateListTag != "" && !t.HasTag(templateListTag) {
				continue
			}
			out = append(out, t)
		}

		w := cmd.OutOrStdout()
		if templateJSON {
			if out == nil {
				out = []models.ChecklistTemplate{}
			}
			return writeJSON(w, out)
		}
		if len(out) == 0 {
			fmt.Fprintln(w, "No templates found.")
			return nil
		}
		fmt.Fprintf(w, "%-22s %-12s %-8s %-6s %s\n", "ID", "CATEGORY", "VERSION", "ITEMS", "NAME")
		for _, t := range out {
			fmt.Fprintf(w, "%-22s %-12s %-8s %-6d %s\n", t.ID, t.Category, t.Version, len(t.Items), t.Name)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <template-id>",
	Short: "Show the items of a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Catalog == nil {
			return fmt.Errorf("template catalog not initialized")
		}
		t, ok := Catalog.LookupTemplate(args[0])
		if !ok {
			return fmt.Errorf("template %s not found", args[0])
		}

		w := cmd.OutOrStdout()
		if templateJSON {
			return writeJSON(w, t)
		}
		fmt.Fprintf(w, "%s  %s (v%s)\n", t.ID, t.Name, t.Version)
		fmt.Fprintf(w, "%s\n", mutedStyle.Render(fmt.Sprintf("%s / %s  %v", t.Category, t.Type, t.Tags)))
		if t.Description != "" {
			fmt.Fprintf(w, "\n%s\n", t.Description)
		}
		fmt.Fprintln(w)
		for k, item := range t.Items {
			fmt.Fprintf(w, "  %2d. %-3s %s\n", k+1, itemFlags(item), item.Title)
		}
		fmt.Fprintln(w, mutedStyle.Render("\n  M = mandatory, C = critical, V = requires verification"))
		return nil
	},
}

func init() {
	templateListCmd.Flags().StringVar(&templateListCategory, "category", "", "Only list templates in this category")
	templateListCmd.Flags().StringVar(&templateListTag, "tag", "", "Only list templates carrying this tag")
	_ = templateListCmd.RegisterFlagCompletionFunc("category", completeTemplateCategories)
	templateCmd.PersistentFlags().BoolVar(&templateJSON, "json", false, "Output as JSON")
	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	rootCmd.AddCommand(templateCmd)
}
